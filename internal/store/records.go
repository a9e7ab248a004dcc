// Package store persists pipeline records as JSON files and tracks processed
// work in a small sqlite ledger.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"councilreader/internal/models"
)

// Record directories under the base path.
const (
	DirAgendas        = "agendas"
	DirPDFSummaries   = "pdf_summaries"
	DirVideoSummaries = "video_summaries"
	DirCouncilFiles   = "councilfiles"

	indexFile          = "index.json"
	recentMeetingsFile = "recent_meetings.json"
	agendaPrefix       = "agenda_"
)

// ErrNotFound reports a record that has not been written yet.
var ErrNotFound = errors.New("record not found")

// Records reads and writes the pipeline's JSON records.
type Records struct {
	base   string
	pretty bool
}

// NewRecords creates a record store rooted at base.
func NewRecords(base string, pretty bool) *Records {
	return &Records{base: base, pretty: pretty}
}

// Init creates the record directories.
func (r *Records) Init() error {
	for _, dir := range []string{DirAgendas, DirPDFSummaries, DirVideoSummaries, DirCouncilFiles} {
		if err := os.MkdirAll(filepath.Join(r.base, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	return nil
}

// Base returns the root directory.
func (r *Records) Base() string {
	return r.base
}

// AgendaPath is where a parsed meeting is stored.
func (r *Records) AgendaPath(meetingID int) string {
	return filepath.Join(r.base, DirAgendas, agendaPrefix+strconv.Itoa(meetingID)+".json")
}

// PDFSummaryPath is where an attachment summary is stored.
func (r *Records) PDFSummaryPath(historyID string) string {
	return filepath.Join(r.base, DirPDFSummaries, SafeName(historyID)+".json")
}

// VideoSummaryPath is where a meeting video summary is stored.
func (r *Records) VideoSummaryPath(meetingID int) string {
	return filepath.Join(r.base, DirVideoSummaries, "meeting_"+strconv.Itoa(meetingID)+"_summary.json")
}

// CouncilFilePath is where a council file record is stored.
func (r *Records) CouncilFilePath(councilFile string) string {
	return filepath.Join(r.base, DirCouncilFiles, SafeName(councilFile)+".json")
}

// IndexPath is where the council file index is stored.
func (r *Records) IndexPath() string {
	return filepath.Join(r.base, DirCouncilFiles, indexFile)
}

// RecentMeetingsPath is where the last meeting listing is stored.
func (r *Records) RecentMeetingsPath() string {
	return filepath.Join(r.base, recentMeetingsFile)
}

// SaveMeeting writes a parsed meeting.
func (r *Records) SaveMeeting(m *models.Meeting) error {
	return r.write(r.AgendaPath(m.MeetingID), m)
}

// LoadMeeting reads a parsed meeting.
func (r *Records) LoadMeeting(meetingID int) (*models.Meeting, error) {
	var m models.Meeting
	if err := r.read(r.AgendaPath(meetingID), &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// HasMeeting reports whether a meeting has been parsed and stored.
func (r *Records) HasMeeting(meetingID int) bool {
	return exists(r.AgendaPath(meetingID))
}

// LoadMeetings reads every stored meeting in meeting id order. Unreadable
// files are skipped; their errors are joined into the returned error.
func (r *Records) LoadMeetings() ([]models.Meeting, error) {
	paths, err := filepath.Glob(filepath.Join(r.base, DirAgendas, agendaPrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list agendas: %w", err)
	}

	var (
		meetings []models.Meeting
		errs     []error
	)

	for _, path := range paths {
		var m models.Meeting
		if err := r.read(path, &m); err != nil {
			errs = append(errs, err)

			continue
		}

		meetings = append(meetings, m)
	}

	sort.SliceStable(meetings, func(i, j int) bool { return meetings[i].MeetingID < meetings[j].MeetingID })

	return meetings, errors.Join(errs...)
}

// SaveAttachmentSummary writes an attachment summary.
func (r *Records) SaveAttachmentSummary(s *models.AttachmentSummary) error {
	return r.write(r.PDFSummaryPath(s.HistoryID), s)
}

// LoadAttachmentSummary reads an attachment summary.
func (r *Records) LoadAttachmentSummary(historyID string) (*models.AttachmentSummary, error) {
	var s models.AttachmentSummary
	if err := r.read(r.PDFSummaryPath(historyID), &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// HasAttachmentSummary reports whether an attachment has been summarized.
func (r *Records) HasAttachmentSummary(historyID string) bool {
	return exists(r.PDFSummaryPath(historyID))
}

// LoadSummaryTexts maps history ids to summary text for every stored
// attachment summary. Unreadable files are skipped and reported.
func (r *Records) LoadSummaryTexts() (map[string]string, error) {
	paths, err := filepath.Glob(filepath.Join(r.base, DirPDFSummaries, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}

	texts := make(map[string]string, len(paths))

	var errs []error

	for _, path := range paths {
		var s models.AttachmentSummary
		if err := r.read(path, &s); err != nil {
			errs = append(errs, err)

			continue
		}

		if s.HistoryID != "" && strings.TrimSpace(s.Summary) != "" {
			texts[s.HistoryID] = s.Summary
		}
	}

	return texts, errors.Join(errs...)
}

// SaveVideoSummary writes a meeting video summary.
func (r *Records) SaveVideoSummary(s *models.VideoSummary) error {
	return r.write(r.VideoSummaryPath(s.MeetingID), s)
}

// LoadVideoSummary reads a meeting video summary.
func (r *Records) LoadVideoSummary(meetingID int) (*models.VideoSummary, error) {
	var s models.VideoSummary
	if err := r.read(r.VideoSummaryPath(meetingID), &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// HasVideoSummary reports whether a meeting video has been summarized.
func (r *Records) HasVideoSummary(meetingID int) bool {
	return exists(r.VideoSummaryPath(meetingID))
}

// ReplaceCouncilFiles writes every council file and the index, then removes
// records of files that no longer appear.
func (r *Records) ReplaceCouncilFiles(files []models.CouncilFile, index models.Index) error {
	keep := map[string]bool{indexFile: true}

	for i := range files {
		path := r.CouncilFilePath(files[i].CouncilFile)
		if err := r.write(path, &files[i]); err != nil {
			return err
		}

		keep[filepath.Base(path)] = true
	}

	if err := r.write(r.IndexPath(), &index); err != nil {
		return err
	}

	stale, err := filepath.Glob(filepath.Join(r.base, DirCouncilFiles, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list council files: %w", err)
	}

	for _, path := range stale {
		if keep[filepath.Base(path)] {
			continue
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale council file: %w", err)
		}
	}

	return nil
}

// LoadCouncilFile reads one council file record.
func (r *Records) LoadCouncilFile(councilFile string) (*models.CouncilFile, error) {
	var cf models.CouncilFile
	if err := r.read(r.CouncilFilePath(councilFile), &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// LoadIndex reads the council file index.
func (r *Records) LoadIndex() (*models.Index, error) {
	var idx models.Index
	if err := r.read(r.IndexPath(), &idx); err != nil {
		return nil, err
	}

	return &idx, nil
}

// SaveRecentMeetings writes the last meeting listing.
func (r *Records) SaveRecentMeetings(meetings []models.PortalMeeting) error {
	return r.write(r.RecentMeetingsPath(), meetings)
}

// LoadRecentMeetings reads the last meeting listing.
func (r *Records) LoadRecentMeetings() ([]models.PortalMeeting, error) {
	var meetings []models.PortalMeeting
	if err := r.read(r.RecentMeetingsPath(), &meetings); err != nil {
		return nil, err
	}

	return meetings, nil
}

func (r *Records) write(path string, v any) error {
	var (
		data []byte
		err  error
	)

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	return WriteFileAtomic(path, append(data, '\n'))
}

func (r *Records) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(path))
	}

	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)

		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}

	return nil
}

// SafeName maps an identifier to a file name, replacing anything outside
// [A-Za-z0-9._-] with '_'. When anything was replaced, a short hash of the
// raw identifier is appended so distinct ids keep distinct names.
func SafeName(id string) string {
	var b strings.Builder

	replaced := false

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.' && b.Len() > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')

			replaced = true
		}
	}

	if replaced {
		sum := sha256.Sum256([]byte(id))
		b.WriteString("-" + hex.EncodeToString(sum[:4]))
	}

	return b.String()
}

func exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}
