package cvs

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type RunOptions struct {
	// Annotation export to read.
	InputPath string
	// Optional CSV of videoId to video_name.
	MappingPath string
	OutputDir   string
	Format      Format
	Dedup       DedupMode
	Parse       ParseOptions
}

// Output file names, without extension.
const (
	FrameLevelName = "frame_level"
	VideoLevelName = "video_level"
	CombinedName   = "combined"
	WrongName      = "wrong"
	PerVideoDir    = "per_video"
)

// Report is the in-memory result of one annotation run.
type Report struct {
	ID         string
	InputPath  string
	Tables     Tables
	Validation Validation

	// Enriched tables, as written to the top-level outputs.
	Frames   *Table
	Videos   *Table
	Combined *Table
	Wrong    *Table

	PerVideo []VideoOutput
}

// Build runs the reshaping pipeline without writing anything.
func Build(opts RunOptions) (*Report, error) {
	doc, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, err
	}
	log.Printf("[annotations] read %d bytes from %s", len(doc), opts.InputPath)

	var mapping *Mapping
	if opts.MappingPath != "" {
		mapping, err = LoadMapping(opts.MappingPath)
		if err != nil {
			return nil, fmt.Errorf("mapping %s: %w", opts.MappingPath, err)
		}
		log.Printf("[annotations] loaded %d video names from %s", mapping.Len(), opts.MappingPath)
	} else {
		log.Printf("[annotations] warning: no video name mapping, per-video output will be empty")
	}

	report, err := BuildReport(doc, mapping, opts.Dedup, opts.Parse)
	if err != nil {
		return nil, err
	}
	report.InputPath = opts.InputPath
	return report, nil
}

// BuildReport parses, assembles, validates and enriches an annotation export.
func BuildReport(doc []byte, mapping *Mapping, dedup DedupMode, parseOpts ParseOptions) (*Report, error) {
	parsed, err := ParseAnnotations(doc, parseOpts)
	if err != nil {
		return nil, err
	}
	log.Printf("[annotations] parsed %d frame rows and %d video rows", len(parsed.Frames), len(parsed.Videos))

	tables := Assemble(parsed, dedup)
	validation := Validate(tables)

	report := &Report{
		ID:         uuid.New().String(),
		Tables:     tables,
		Validation: validation,
		Frames:     Enrich(FrameTable(validation.Frames), mapping),
		Videos:     Enrich(VideoTable(validation.Videos), mapping),
		Combined:   Enrich(CombinedTable(validation.Combined), mapping),
		Wrong:      Enrich(WrongTable(validation.Wrong), mapping),
	}
	report.PerVideo = FanOut(report.Frames, report.Videos)
	return report, nil
}

// Write stores the report tables under dir and returns the written files.
func (r *Report) Write(dir string, format Format) ([]string, error) {
	if format == "" {
		format = FormatXLSX
	}
	var written []string
	write := func(t *Table, parts ...string) error {
		fname := filepath.Join(append([]string{dir}, parts...)...) + format.Ext()
		if err := WriteTable(t, format, fname); err != nil {
			return err
		}
		written = append(written, fname)
		return nil
	}

	top := []struct {
		name  string
		table *Table
	}{
		{FrameLevelName, r.Frames},
		{VideoLevelName, r.Videos},
		{CombinedName, r.Combined},
		{WrongName, r.Wrong},
	}
	for _, t := range top {
		if err := write(t.table, t.name); err != nil {
			return written, err
		}
	}

	for _, out := range r.PerVideo {
		if out.Folder == "" || out.Folder == "." || out.Folder == ".." {
			log.Printf("[annotations] skipping video name %q: no usable folder name", out.Name)
			continue
		}
		if err := write(out.Frames, PerVideoDir, out.Folder, FrameLevelName); err != nil {
			return written, err
		}
		if err := write(out.Video, PerVideoDir, out.Folder, VideoLevelName); err != nil {
			return written, err
		}
	}
	log.Printf("[annotations] wrote %d files to %s", len(written), dir)
	return written, nil
}

// Run builds the report from opts and writes it to opts.OutputDir.
func Run(opts RunOptions) (*Report, error) {
	report, err := Build(opts)
	if err != nil {
		return nil, err
	}
	if _, err := report.Write(opts.OutputDir, opts.Format); err != nil {
		return report, err
	}
	return report, nil
}
