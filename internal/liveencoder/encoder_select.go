package liveencoder

import (
	"fmt"
	"strings"

	"github.com/hanatv/hanatv/internal/util"
)

// EncoderKind identifies one of the five supported transcoder backends, per
// spec.md §4.F/§6.
type EncoderKind string

const (
	EncoderFFmpeg   EncoderKind = "ffmpeg"
	EncoderQSVEncC  EncoderKind = "qsvencc"
	EncoderNVEncC   EncoderKind = "nvencc"
	EncoderVCEEncC  EncoderKind = "vceencc"
	EncoderRkmppenc EncoderKind = "rkmppenc"
)

// encoderBinaryNames maps each EncoderKind to the external binary it execs.
var encoderBinaryNames = map[EncoderKind]string{
	EncoderFFmpeg:   "ffmpeg",
	EncoderQSVEncC:  "QSVEncC",
	EncoderNVEncC:   "NVEncC",
	EncoderVCEEncC:  "VCEEncC",
	EncoderRkmppenc: "rkmppenc",
}

// priorityTokenToKind maps config.FFmpegConfig.HWAccelPriority tokens to the
// EncoderKind they select.
var priorityTokenToKind = map[string]EncoderKind{
	"qsv":      EncoderQSVEncC,
	"nvenc":    EncoderNVEncC,
	"vce":      EncoderVCEEncC,
	"rkmpp":    EncoderRkmppenc,
	"software": EncoderFFmpeg,
	"ffmpeg":   EncoderFFmpeg,
}

// SelectEncoder resolves which of the five encoder backends to launch for
// this process, per spec.md §4.F's "Encoder selection": FFmpeg (software)
// or one of QSVEncC/NVEncC/VCEEncC/rkmppenc (hardware). priority is
// config.FFmpegConfig.HWAccelPriority, tried in order; configuredPaths lets
// an operator pin an explicit binary path per kind (config.FFmpegConfig's
// per-encoder path fields), bypassing PATH lookup. The first kind in
// priority whose binary can be located wins; FFmpeg is always appended as
// the guaranteed last resort since it is the one backend every platform
// this system targets can run.
func SelectEncoder(priority []string, configuredPaths map[EncoderKind]string) (kind EncoderKind, path string, err error) {
	order := make([]EncoderKind, 0, len(priority)+1)
	for _, token := range priority {
		if k, ok := priorityTokenToKind[strings.ToLower(strings.TrimSpace(token))]; ok {
			order = append(order, k)
		}
	}
	order = append(order, EncoderFFmpeg)

	var lastErr error
	for _, k := range order {
		if p, ok := configuredPaths[k]; ok && p != "" {
			return k, p, nil
		}
		p, findErr := util.FindBinary(encoderBinaryNames[k], "")
		if findErr == nil {
			return k, p, nil
		}
		lastErr = findErr
	}
	return "", "", fmt.Errorf("no usable encoder backend found: %w", lastErr)
}

// BuildTsreadexArgs returns the fixed tsreadex invocation of spec.md §6. For
// recorded replay, dualMonoModeRecorded selects -b 7 instead of -b 5.
func BuildTsreadexArgs(serviceID int, downstreamIsHWEncCOnLinux, dualMonoModeRecorded bool) []string {
	d := 9
	if downstreamIsHWEncCOnLinux {
		d = 13
	}
	bFlag := "5"
	if dualMonoModeRecorded {
		bFlag = "7"
	}
	svc := "-1"
	if serviceID > 0 {
		svc = fmt.Sprintf("%d", serviceID)
	}
	return []string{
		"-x", "18/38/39",
		"-n", svc,
		"-a", "13",
		"-b", bFlag,
		"-c", "5",
		"-u", "1",
		"-d", fmt.Sprintf("%d", d),
		"-",
	}
}

// GOPSeconds returns the fixed GOP length for the given encoder's codec
// choice, per spec.md §4.G/§4.I: H.264 is 0.5s, H.265 is 2.5s.
func GOPSeconds(isHEVC bool) float64 {
	if isHEVC {
		return 2.5
	}
	return 0.5
}

// EncoderArgs builds the command-line argument list for kind encoding
// profile p, reading from stdin and writing MPEG-TS to stdout, per spec.md
// §6: "-f mpegts, forced GOP, per-profile bitrate caps, yadif/HW
// deinterlace, AAC 48 kHz stereo, -output_ts_offset for recorded mode."
// outputTSOffsetSeconds is 0 for live encoding, or the segment's global
// start time for recorded encoding (spec.md §4.I).
func EncoderArgs(kind EncoderKind, p Profile, width, height int, interlaced bool, outputTSOffsetSeconds float64) []string {
	gopSeconds := GOPSeconds(p.IsHEVC)
	fps := 29.97
	if p.Is60fps {
		fps = 59.94
	}
	gopFrames := int(gopSeconds * fps)

	switch kind {
	case EncoderFFmpeg:
		args := []string{"-hide_banner", "-loglevel", "error", "-i", "-"}
		if interlaced {
			args = append(args, "-vf", "yadif=1")
		}
		codec := "libx264"
		if p.IsHEVC {
			codec = "libx265"
		}
		args = append(args,
			"-c:v", codec,
			"-s", fmt.Sprintf("%dx%d", width, height),
			"-b:v", fmt.Sprintf("%dk", p.VideoBitrateKbps),
			"-maxrate", fmt.Sprintf("%dk", p.VideoBitrateMaxKbps),
			"-g", fmt.Sprintf("%d", gopFrames),
			"-keyint_min", fmt.Sprintf("%d", gopFrames),
			"-sc_threshold", "0",
			"-c:a", "aac",
			"-b:a", fmt.Sprintf("%dk", p.AudioBitrateKbps),
			"-ar", "48000",
			"-ac", "2",
			"-f", "mpegts",
		)
		if outputTSOffsetSeconds > 0 {
			args = append(args, "-output_ts_offset", fmt.Sprintf("%.6f", outputTSOffsetSeconds), "-copyts")
		}
		return append(args, "-")

	case EncoderQSVEncC, EncoderNVEncC, EncoderVCEEncC, EncoderRkmppenc:
		args := []string{"--input-format", "mpegts", "-i", "-"}
		if interlaced {
			args = append(args, vppDeinterlaceFlag(kind))
		}
		codecFlag := "--avc"
		if p.IsHEVC {
			codecFlag = "--hevc"
		}
		args = append(args,
			codecFlag,
			"--output-res", fmt.Sprintf("%dx%d", width, height),
			"--vbr", fmt.Sprintf("%d", p.VideoBitrateKbps),
			"--max-bitrate", fmt.Sprintf("%d", p.VideoBitrateMaxKbps),
			"--gop-len", fmt.Sprintf("%d", gopFrames),
			gopFixedFlag(kind),
			"--audio-codec", "aac",
			"--audio-bitrate", fmt.Sprintf("%d", p.AudioBitrateKbps),
			"--audio-samplerate", "48000",
			"--format", "mpegts",
		)
		if outputTSOffsetSeconds > 0 {
			args = append(args, "--output-ts-offset", fmt.Sprintf("%.6f", outputTSOffsetSeconds))
		}
		return append(args, "--output", "-")
	}
	return nil
}

// gopFixedFlag pins the GOP to a fixed length (spec.md §4.I: QSVEncC needs
// --strict-gop, NVEncC needs --no-i-adapt). EncoderArgs adds it for live and
// recorded encoding alike.
func gopFixedFlag(kind EncoderKind) string {
	switch kind {
	case EncoderQSVEncC:
		return "--strict-gop"
	case EncoderNVEncC:
		return "--no-i-adapt"
	default:
		return "--gop-len-fixed"
	}
}

func vppDeinterlaceFlag(kind EncoderKind) string {
	switch kind {
	case EncoderNVEncC:
		return "--vpp-yadif"
	case EncoderQSVEncC:
		return "--vpp-deinterlace normal"
	default:
		return "--vpp-deinterlace"
	}
}
