package metadata

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hanatv/hanatv/internal/models"
	"github.com/hanatv/hanatv/internal/psiarchive"
	"github.com/hanatv/hanatv/internal/tsutil"
)

// BuildRecordedProgram derives the RecordedProgram metadata for a recording,
// per spec.md §4.J's fallback chain: embedded EIT in a `.psc` PSI/SI
// archive sidecar, then (if no sidecar or no matching event) the file name
// stem. serviceID selects which service's events to read out of the
// archive; it is 0 when unknown, in which case events of every service in
// the archive are considered.
func BuildRecordedProgram(video *models.RecordedVideo, psiArchivePath string, serviceID uint16) *models.RecordedProgram {
	if psiArchivePath != "" {
		if p := programFromPSIArchive(psiArchivePath, serviceID, video.RecordingStartAt); p != nil {
			return p
		}
	}
	return programFromFileName(video)
}

// programFromPSIArchive replays the archive's EIT sections and returns the
// event whose start time is closest to (and not after) the recording's
// start, matching original_source's "nearest preceding EIT present/
// following event" selection.
func programFromPSIArchive(path string, serviceID uint16, recordingStart time.Time) *models.RecordedProgram {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader := psiarchive.NewReader(f)
	var best *eitEvent
	var bestDelta time.Duration = -1

	for {
		sections, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil
		}
		for _, section := range sections {
			if section.PID != tsutil.PIDEIT {
				continue
			}
			events, err := decodeEITSection(section.Data)
			if err != nil {
				continue
			}
			for i := range events {
				ev := events[i]
				if serviceID != 0 && ev.ServiceID != serviceID {
					continue
				}
				if ev.StartAt.IsZero() || ev.StartAt.After(recordingStart) {
					continue
				}
				delta := recordingStart.Sub(ev.StartAt)
				if bestDelta < 0 || delta < bestDelta {
					bestDelta = delta
					evCopy := ev
					best = &evCopy
				}
			}
		}
	}

	if best == nil {
		return nil
	}
	return &models.RecordedProgram{
		StartAt: best.StartAt,
		EndAt:   best.StartAt.Add(best.Duration),
		Title:   best.Title,
		Detail:  best.Detail,
		Genres:  best.Genres,
	}
}

// recordingFileNameStem matches the recorder's default file naming
// convention, "YYYYMMDD-HHMM_<title>.ts", used as a last-resort metadata
// source when no PSI archive sidecar exists or it carries no matching EIT
// event, per spec.md §4.J.
var recordingFileNameStem = regexp.MustCompile(`^(\d{8})-(\d{4})_(.+)$`)

func programFromFileName(video *models.RecordedVideo) *models.RecordedProgram {
	stem := strings.TrimSuffix(filepath.Base(video.FilePath), filepath.Ext(video.FilePath))
	title := stem
	startAt := video.RecordingStartAt

	if m := recordingFileNameStem.FindStringSubmatch(stem); m != nil {
		if t, err := time.ParseInLocation("20060102-1504", m[1]+"-"+m[2], time.Local); err == nil {
			startAt = t
		}
		title = m[3]
	}

	endAt := startAt.Add(video.Duration)

	return &models.RecordedProgram{
		StartAt: startAt,
		EndAt:   endAt,
		Title:   title,
	}
}
