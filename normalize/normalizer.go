package normalize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyhookml/cvsprep/cvs"
)

// Videos are trimmed to exactly this many frames (90 seconds at 30 fps).
const DefaultTargetFrames = 2700

const (
	SuccessLedgerName = "success_videos.txt"
	ErrorLedgerName   = "error_videos.txt"
	ProcessLogName    = "video_processing.log"
)

// Layout of the output directory.
type Layout struct {
	Root string
}

func (l Layout) Untrimmed() string {
	return filepath.Join(l.Root, "success", "untrimmed")
}

func (l Layout) Trimmed() string {
	return filepath.Join(l.Root, "success", "trimmed")
}

func (l Layout) Fail() string {
	return filepath.Join(l.Root, "fail")
}

func (l Layout) SuccessLedger() string {
	return filepath.Join(l.Root, SuccessLedgerName)
}

func (l Layout) ErrorLedger() string {
	return filepath.Join(l.Root, ErrorLedgerName)
}

func (l Layout) ProcessLog() string {
	return filepath.Join(l.Root, ProcessLogName)
}

// Outcome is the terminal state of one input file.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeUntrimmed    Outcome = "untrimmed"
	OutcomeTrimmed      Outcome = "trimmed"
	OutcomeUnreadable   Outcome = "unreadable"
	OutcomeTooShort     Outcome = "too_short"
	OutcomeEncodeFailed Outcome = "encode_failed"
	// A local I/O error left the file where it was, unrecorded.
	OutcomeError Outcome = "error"
	// The run was cancelled while this file was being handled.
	OutcomeInterrupted Outcome = "interrupted"
)

// Failed reports whether the file counts against the run's exit status.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeUnreadable, OutcomeTooShort, OutcomeEncodeFailed, OutcomeError:
		return true
	}
	return false
}

type Result struct {
	Name    string
	Path    string
	Outcome Outcome
	Frames  int
	// Where the file (or its trimmed copy) ended up.
	Dest string
	Err  error
}

type Options struct {
	OutputDir    string
	TargetFrames int
	// Classify and log only; nothing is moved, encoded or recorded.
	DryRun bool
	Tool   Tool
}

type Normalizer struct {
	opts     Options
	layout   Layout
	runID    string
	success  *Ledger
	failures *Ledger
	plog     *zap.Logger
	closeLog func() error
}

// New prepares the output directory and opens the ledgers and process log.
func New(opts Options) (*Normalizer, error) {
	if opts.TargetFrames <= 0 {
		opts.TargetFrames = DefaultTargetFrames
	}
	if opts.Tool == nil {
		opts.Tool = Ffmpeg{}
	}
	layout := Layout{Root: opts.OutputDir}
	for _, dir := range []string{layout.Untrimmed(), layout.Trimmed(), layout.Fail()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &cvs.WriteError{Path: dir, Err: err}
		}
	}

	n := &Normalizer{
		opts:   opts,
		layout: layout,
		runID:  uuid.New().String(),
	}
	var err error
	if n.success, err = OpenLedger(layout.SuccessLedger()); err != nil {
		return nil, err
	}
	if n.failures, err = OpenLedger(layout.ErrorLedger()); err != nil {
		n.success.Close()
		return nil, err
	}
	plog, closeLog, err := OpenProcessLog(layout.ProcessLog())
	if err != nil {
		n.success.Close()
		n.failures.Close()
		return nil, err
	}
	n.plog = plog.With(zap.String("run_id", n.runID))
	n.closeLog = closeLog
	log.Printf("[normalize] run %s: %d videos already processed", n.runID, n.success.Len())
	return n, nil
}

func (n *Normalizer) RunID() string {
	return n.runID
}

func (n *Normalizer) Layout() Layout {
	return n.layout
}

func (n *Normalizer) Close() error {
	err := n.closeLog()
	if e := n.success.Close(); err == nil {
		err = e
	}
	if e := n.failures.Close(); err == nil {
		err = e
	}
	return err
}

// Process classifies one video and acts on it.
// The success ledger is only written once the file's output is complete.
func (n *Normalizer) Process(ctx context.Context, path string) Result {
	name := filepath.Base(path)
	res := Result{Name: name, Path: path}

	if n.success.Has(name) {
		log.Printf("[normalize] skipping %s: already processed", name)
		res.Outcome = OutcomeSkipped
		return res
	}

	info, err := n.opts.Tool.Probe(ctx, path)
	if ctx.Err() != nil {
		return n.interrupted(res, ctx.Err())
	}
	if err != nil || info.FPS() == 0 {
		res.Outcome = OutcomeUnreadable
		return n.fail(res, &UnreadableVideoError{Name: name, Err: err})
	}
	res.Frames = info.Frames
	target := n.opts.TargetFrames

	switch {
	case info.Frames == target:
		res.Outcome = OutcomeUntrimmed
	case info.Frames > target:
		res.Outcome = OutcomeTrimmed
	default:
		res.Outcome = OutcomeTooShort
	}
	n.plog.Info("classified",
		zap.String("video", name),
		zap.Int("frames", info.Frames),
		zap.Float64("fps", info.FPS()),
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("dry_run", n.opts.DryRun),
	)

	switch res.Outcome {
	case OutcomeUntrimmed:
		return n.passThrough(res)
	case OutcomeTrimmed:
		return n.trim(ctx, res)
	default:
		return n.fail(res, &ShortVideoError{Name: name, Frames: info.Frames, Target: target})
	}
}

func (n *Normalizer) passThrough(res Result) Result {
	res.Dest = filepath.Join(n.layout.Untrimmed(), res.Name)
	if n.opts.DryRun {
		return res
	}
	if err := cvs.MoveFile(res.Path, res.Dest); err != nil {
		return n.ioError(res, err)
	}
	n.plog.Info("moved", zap.String("video", res.Name), zap.String("dest", res.Dest))
	if err := n.success.Append(res.Name); err != nil {
		return n.ioError(res, err)
	}
	return res
}

func (n *Normalizer) trim(ctx context.Context, res Result) Result {
	res.Dest = filepath.Join(n.layout.Trimmed(), res.Name)
	if n.opts.DryRun {
		return res
	}
	target := n.opts.TargetFrames

	// encode next to the destination and only rename once the frame count checks out
	tmp := filepath.Join(n.layout.Trimmed(), "."+strings.TrimSuffix(res.Name, filepath.Ext(res.Name))+".partial.mp4")
	defer os.Remove(tmp)

	if err := n.opts.Tool.Trim(ctx, res.Path, tmp, target); err != nil {
		if ctx.Err() != nil {
			return n.interrupted(res, ctx.Err())
		}
		res.Outcome = OutcomeEncodeFailed
		return n.fail(res, &EncodeError{Name: res.Name, Err: err})
	}
	check, err := n.opts.Tool.Probe(ctx, tmp)
	if ctx.Err() != nil {
		return n.interrupted(res, ctx.Err())
	}
	if err == nil && check.Frames != target {
		err = fmt.Errorf("trimmed copy has %d frames, want %d", check.Frames, target)
	}
	if err != nil {
		res.Outcome = OutcomeEncodeFailed
		return n.fail(res, &EncodeError{Name: res.Name, Err: err})
	}

	if err := os.Rename(tmp, res.Dest); err != nil {
		return n.ioError(res, err)
	}
	n.plog.Info("trimmed",
		zap.String("video", res.Name),
		zap.Int("from_frames", res.Frames),
		zap.Int("to_frames", target),
		zap.String("dest", res.Dest),
	)
	if err := n.success.Append(res.Name); err != nil {
		return n.ioError(res, err)
	}
	return res
}

// Moves the original into the fail area and records it in the error ledger.
func (n *Normalizer) fail(res Result, cause error) Result {
	res.Err = cause
	res.Dest = filepath.Join(n.layout.Fail(), res.Name)
	log.Printf("[normalize] %v", cause)
	n.plog.Warn("failed",
		zap.String("video", res.Name),
		zap.String("outcome", string(res.Outcome)),
		zap.Error(cause),
		zap.Bool("dry_run", n.opts.DryRun),
	)
	if n.opts.DryRun {
		return res
	}
	if err := cvs.MoveFile(res.Path, res.Dest); err != nil {
		res.Dest = ""
		log.Printf("[normalize] could not move %s to fail area: %v", res.Name, err)
		n.plog.Error("move failed", zap.String("video", res.Name), zap.Error(err))
	} else {
		n.plog.Info("moved", zap.String("video", res.Name), zap.String("dest", res.Dest))
	}
	if err := n.failures.Append(res.Name); err != nil {
		log.Printf("[normalize] could not record failure of %s: %v", res.Name, err)
	}
	return res
}

func (n *Normalizer) ioError(res Result, err error) Result {
	log.Printf("[normalize] %s: %v", res.Name, err)
	n.plog.Error("error", zap.String("video", res.Name), zap.Error(err))
	res.Outcome = OutcomeError
	res.Err = err
	res.Dest = ""
	return res
}

func (n *Normalizer) interrupted(res Result, err error) Result {
	log.Printf("[normalize] %s: interrupted", res.Name)
	n.plog.Warn("interrupted", zap.String("video", res.Name))
	res.Outcome = OutcomeInterrupted
	res.Err = err
	res.Dest = ""
	return res
}

type Summary struct {
	RunID   string
	Results []Result
	Counts  map[Outcome]int
}

// Failed returns how many files failed in this run.
func (s Summary) Failed() int {
	count := 0
	for outcome, n := range s.Counts {
		if outcome.Failed() {
			count += n
		}
	}
	return count
}

func (s Summary) Interrupted() bool {
	return s.Counts[OutcomeInterrupted] > 0
}

// Run processes paths in order and writes the run end marker to the process
// log. onResult, if set, is called after each file.
// A cancelled ctx stops the run after the current file.
func (n *Normalizer) Run(ctx context.Context, paths []string, onResult func(Result)) Summary {
	summary := Summary{RunID: n.runID, Counts: make(map[Outcome]int)}
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		res := n.Process(ctx, path)
		summary.Results = append(summary.Results, res)
		summary.Counts[res.Outcome]++
		if onResult != nil {
			onResult(res)
		}
	}

	fields := []zap.Field{zap.Int("inputs", len(paths))}
	var outcomes []string
	for outcome := range summary.Counts {
		outcomes = append(outcomes, string(outcome))
	}
	sort.Strings(outcomes)
	for _, outcome := range outcomes {
		fields = append(fields, zap.Int(outcome, summary.Counts[Outcome(outcome)]))
	}
	n.plog.Info("run end", fields...)
	log.Printf("[normalize] run %s done: %d inputs, %d failed", n.runID, len(paths), summary.Failed())
	return summary
}

// Discover lists the .mp4 files to process: source itself if it is a file,
// or the regular .mp4 files directly inside it if it is a directory.
func Discover(source string) ([]string, error) {
	fi, err := os.Stat(source)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		if cvs.Ext(source) != "mp4" {
			return nil, fmt.Errorf("%s is not an .mp4 file", source)
		}
		return []string{source}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if cvs.Ext(entry.Name()) != "mp4" {
			log.Printf("[normalize] skipping %s: not an .mp4 file", entry.Name())
			continue
		}
		paths = append(paths, filepath.Join(source, entry.Name()))
	}
	return paths, nil
}

// ListVideos returns the names of the .mp4 files in dir.
func ListVideos(dir string) ([]string, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}
	return names, nil
}

// WriteNameList writes one name per line to fname.
func WriteNameList(names []string, fname string) error {
	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(fname, []byte(sb.String()), 0644); err != nil {
		return &cvs.WriteError{Path: fname, Err: err}
	}
	return nil
}

// IsFailure reports whether err came from routing a video to the fail area.
func IsFailure(err error) bool {
	var unreadable *UnreadableVideoError
	var short *ShortVideoError
	var encode *EncodeError
	return errors.As(err, &unreadable) || errors.As(err, &short) || errors.As(err, &encode)
}
