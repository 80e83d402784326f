package liveencoder

import "strings"

// Transition is a status change an encoder log line maps to.
type Transition struct {
	Status  string // maps to livestream.Status string value, kept decoupled to avoid an import cycle
	Detail  string
	Fatal   bool // true for EncoderFatal: the hardware cannot encode this profile, permanent Offline
}

// logRule is one entry of the classifier's pattern table.
type logRule struct {
	substr string
	result Transition
}

// classifierTable is the small pattern table mapping stderr substrings to
// state transitions or fatal diagnoses, per spec.md §4.F (non-exhaustive
// list reproduced here).
var classifierTable = []logRule{
	{"arib parser was created", Transition{Status: "Standby", Detail: "エンコードを開始しています…"}},
	{"Application startup complete", Transition{Status: "ONAir"}},
	{"frame=", Transition{Status: "ONAir"}},
	{"HEVC encoding is not supported on current platform", Transition{Status: "Offline", Detail: "お使いの変換機器では HEVC エンコードに対応していません。", Fatal: true}},
	{"Stream map '0:v:0' matches no streams", Transition{Status: "Offline", Detail: "映像ストリームが見つかりませんでした。", Fatal: true}},
}

// Classify scans stderrLine against the pattern table and returns the
// matching Transition, if any.
func Classify(stderrLine string) (Transition, bool) {
	for _, rule := range classifierTable {
		if strings.Contains(stderrLine, rule.substr) {
			return rule.result, true
		}
	}
	return Transition{}, false
}

// offAirTitlePatterns are program titles that indicate the broadcaster
// itself is off-air, used to distinguish "station off-air" from a generic
// receive error when no video/audio PES arrives, per spec.md §4.F/§7.
var offAirTitlePatterns = []string{"放送休止", "番組休止"}

// ClassifyOffAir decides whether the current program title indicates a
// scheduled off-air period (vs. a receive error), per spec.md §8 scenario 5.
func ClassifyOffAir(currentProgramTitle string) (detail string) {
	for _, pat := range offAirTitlePatterns {
		if strings.Contains(currentProgramTitle, pat) {
			return "放送休止"
		}
	}
	return "受信エラー"
}
