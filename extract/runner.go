package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"dashapi/config"

	"github.com/google/shlex"
	"github.com/lithammer/shortuuid/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Format selectors handed to the extraction tool when the client does not
// pick one explicitly.
const (
	DefaultVideoFormat = "best[height<=1080]/best"
	DefaultAudioFormat = "bestaudio/best"
)

// DownloadOptions describe one server-side download request.
type DownloadOptions struct {
	URL     string
	Audio   bool
	Video   bool
	Quality string
	JobID   string
}

// ProgressFunc receives each parsed progress report as the subprocess runs.
type ProgressFunc func(id string, percent float64)

// Runner spawns the extraction tool as an interpreter subprocess, one
// generated script per invocation.
type Runner struct {
	cfg         *config.Config
	interpreter []string
	scriptDir   string
	sem         chan struct{}
}

func NewRunner(cfg *config.Config) (*Runner, error) {
	argv, err := shlex.Split(cfg.PythonBin)
	if err != nil || len(argv) == 0 {
		return nil, fmt.Errorf("invalid interpreter command %q: %w", cfg.PythonBin, err)
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("interpreter not found or not in PATH: %s", argv[0])
	}

	// All generated scripts live in one private directory.
	scriptDir, err := os.MkdirTemp("", "dashapi_")
	if err != nil {
		return nil, fmt.Errorf("could not create script directory: %w", err)
	}
	log.Printf("Using script directory: %s", scriptDir)
	cfg.ScriptDir = scriptDir

	return &Runner{
		cfg:         cfg,
		interpreter: argv,
		scriptDir:   scriptDir,
		sem:         make(chan struct{}, cfg.MaxConcurrency),
	}, nil
}

// Probe fetches metadata and available quality variants without downloading.
func (r *Runner) Probe(ctx context.Context, url string) (*MediaInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	stdout, _, err := r.capture(ctx, "probe", probeScript, url, r.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Error     string      `json:"error"`
		Title     string      `json:"title"`
		Thumbnail string      `json:"thumbnail"`
		Duration  float64     `json:"duration"`
		Uploader  string      `json:"uploader"`
		ViewCount int64       `json:"view_count"`
		Formats   []rawFormat `json:"formats"`
	}
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return nil, fmt.Errorf("unparseable probe output: %w", err)
	}
	if raw.Error != "" {
		return nil, errors.New(raw.Error)
	}

	return &MediaInfo{
		Title:     raw.Title,
		Thumbnail: raw.Thumbnail,
		Duration:  raw.Duration,
		Uploader:  raw.Uploader,
		ViewCount: raw.ViewCount,
		Formats:   normalizeFormats(raw.Formats),
	}, nil
}

// ResolveLink asks the tool for a direct, time-limited upstream URL instead
// of downloading server-side.
func (r *Runner) ResolveLink(ctx context.Context, url string, audio bool, quality string) (*DirectLink, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	format := DefaultVideoFormat
	if audio {
		format = DefaultAudioFormat
	} else if quality != "" {
		format = quality
	}

	stdout, _, err := r.capture(ctx, "link", linkScript, url, format, r.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Error string `json:"error"`
		URL   string `json:"url"`
		Title string `json:"title"`
		Ext   string `json:"ext"`
	}
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return nil, fmt.Errorf("unparseable link output: %w", err)
	}
	if raw.Error != "" {
		return nil, errors.New(raw.Error)
	}
	if raw.URL == "" {
		return nil, errors.New("no direct URL in tool output")
	}

	return &DirectLink{URL: raw.URL, Title: raw.Title, Ext: raw.Ext}, nil
}

// Download runs the extraction tool in download mode, relaying parsed
// progress reports through onProgress as they arrive. It returns the
// accumulated subprocess output as a diagnostic log; err is nil only when
// the process exits zero with the success marker present.
func (r *Runner) Download(ctx context.Context, opts DownloadOptions, onProgress ProgressFunc) (string, error) {
	// Wait for a free processing slot
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := r.checkResources(); err != nil {
		return "", fmt.Errorf("insufficient system resources: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ExtractTimeout)
	defer cancel()

	scriptPath, cleanup, err := r.writeScript("download", downloadScript)
	if err != nil {
		return "", err
	}
	defer cleanup()

	quality := opts.Quality
	if quality == "" {
		quality = DefaultVideoFormat
	}

	cmd := r.command(ctx, scriptPath,
		opts.URL,
		boolArg(opts.Audio),
		boolArg(opts.Video),
		quality,
		opts.JobID,
		r.cfg.DestDir,
		r.cfg.UserAgent,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Printf("Starting download for job %q: %s", opts.JobID, opts.URL)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to spawn extraction process: %w", err)
	}

	var out strings.Builder
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		if id, percent, ok := ParseProgress(line); ok && onProgress != nil {
			onProgress(id, percent)
		}
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the subprocess is never wedged on a full pipe.
		log.Printf("Stdout scan aborted for job %q: %v", opts.JobID, err)
		io.Copy(io.Discard, stdout)
	}

	waitErr := cmd.Wait()
	outText := out.String()

	if waitErr == nil && strings.Contains(outText, SuccessMarker) {
		return outText, nil
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = strings.TrimSpace(outText)
	}
	if detail == "" {
		detail = "Unknown error occurred"
	}
	return outText, errors.New(detail)
}

// capture runs a generated script to completion and returns its buffered
// stdout and stderr.
func (r *Runner) capture(ctx context.Context, mode, script string, args ...string) (string, string, error) {
	scriptPath, cleanup, err := r.writeScript(mode, script)
	if err != nil {
		return "", "", err
	}
	defer cleanup()

	cmd := r.command(ctx, scriptPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return stdout.String(), stderr.String(), fmt.Errorf("extraction process failed: %s", detail)
	}
	return stdout.String(), stderr.String(), nil
}

// writeScript stages one script body under a collision-free name. The
// returned cleanup is best effort; a leftover file in the private script
// directory is harmless.
func (r *Runner) writeScript(mode, body string) (string, func(), error) {
	path := filepath.Join(r.scriptDir, fmt.Sprintf("%s_%s.py", mode, shortuuid.New()))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return "", func() {}, fmt.Errorf("could not stage %s script: %w", mode, err)
	}
	return path, func() { os.Remove(path) }, nil
}

func (r *Runner) command(ctx context.Context, scriptPath string, args ...string) *exec.Cmd {
	argv := append(append([]string{}, r.interpreter[1:]...), scriptPath)
	argv = append(argv, args...)
	return exec.CommandContext(ctx, r.interpreter[0], argv...)
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// checkResources verifies that the system has enough free resources to start
// another download.
func (r *Runner) checkResources() error {
	// CPU
	p, err := cpu.Percent(time.Second, false)
	if err != nil {
		log.Printf("Warning: could not get CPU usage: %v", err)
	} else if len(p) > 0 && p[0] > (100.0-r.cfg.ThrottleCPU) {
		return fmt.Errorf("not enough idle CPU. Current usage: %.2f%%, Idle threshold: %.2f%%", p[0], r.cfg.ThrottleCPU)
	}

	// Memory
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("Warning: could not get memory usage: %v", err)
	} else if vm.Available < uint64(r.cfg.ThrottleFreeMem) {
		return fmt.Errorf("not enough free memory. Available: %d, Required: %d", vm.Available, r.cfg.ThrottleFreeMem)
	}

	// Disk
	d, err := disk.Usage(r.cfg.DestDir)
	if err != nil {
		log.Printf("Warning: could not get disk usage for %s: %v", r.cfg.DestDir, err)
	} else if d.Free < uint64(r.cfg.ThrottleFreeDisk) {
		return fmt.Errorf("not enough free disk space. Available: %d, Required: %d", d.Free, r.cfg.ThrottleFreeDisk)
	}
	return nil
}
