package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/yourusername/ytdesk/internal/domain"
)

func printMetadata(w io.Writer, meta *domain.VideoMetadata) {
	fmt.Fprintf(w, "Title:    %s\n", meta.Title)
	fmt.Fprintf(w, "Uploader: %s\n", meta.Uploader)
	if meta.Duration > 0 {
		fmt.Fprintf(w, "Duration: %s\n", formatDuration(meta.Duration))
	}

	fmt.Fprintln(w, "\nVideo formats:")
	printFormats(w, meta.VideoFormats)
	fmt.Fprintln(w, "\nAudio formats:")
	printFormats(w, meta.AudioFormats)
}

func printFormats(w io.Writer, formats []domain.StreamFormat) {
	if len(formats) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tEXT\tQUALITY\tSIZE\tVCODEC\tACODEC")
	for _, f := range formats {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			f.FormatID,
			f.Container,
			f.QualityLabel,
			formatSize(f.SizeBytes),
			f.VideoCodec,
			f.AudioCodec)
	}
	tw.Flush()
}

func printHistory(w io.Writer, records []*domain.DownloadRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No downloads yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPROGRESS\tFORMAT\tTITLE\tCREATED")
	for _, r := range records {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
			truncate(r.ID, 8),
			r.Status,
			r.Progress,
			r.FormatSelector,
			truncate(title, 40),
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printCookieReport(w io.Writer, report *domain.CookieReport, now time.Time) {
	fmt.Fprintf(w, "Cookie file: %s\n", report.Path)
	fmt.Fprintf(w, "  Cookies:      %d\n", report.Total)
	fmt.Fprintf(w, "  Expired:      %d\n", report.Expired)
	fmt.Fprintf(w, "  Session only: %d\n", report.SessionOnly)
	if len(report.Domains) > 0 {
		fmt.Fprintf(w, "  Domains:      %s\n", strings.Join(report.Domains, ", "))
	}
	if report.EarliestUnix > 0 {
		earliest := time.Unix(report.EarliestUnix, 0)
		state := "expires"
		if !earliest.After(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "  Earliest:     %s %s\n", state, earliest.Local().Format("2006-01-02 15:04"))
	}
	if report.AllExpired() {
		fmt.Fprintln(w, "All cookies have expired; export a fresh cookie file.")
	}
}

// progressPrinter redraws a single progress line in place
type progressPrinter struct {
	w       io.Writer
	drawn   bool
	percent float64
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, percent: -1}
}

// Update redraws the line when the percentage changed
func (p *progressPrinter) Update(percent float64) {
	if percent == p.percent {
		return
	}
	p.percent = percent
	p.drawn = true

	const width = 30
	filled := int(percent / 100 * width)
	filled = max(0, min(width, filled))
	fmt.Fprintf(p.w, "\r[%s%s] %5.1f%%",
		strings.Repeat("#", filled),
		strings.Repeat(" ", width-filled),
		percent)
}

// Break ends the progress line so other output starts on a fresh one
func (p *progressPrinter) Break() {
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}

func formatSize(size *int64) string {
	if size == nil {
		return "-"
	}
	const unit = 1024
	b := *size
	if b < unit {
		return strconv.FormatInt(b, 10) + "B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// describeError adds a hint for failures the user can fix locally
func describeError(err error) string {
	var launchErr *domain.LaunchError
	if errors.As(err, &launchErr) {
		return err.Error() + " (install yt-dlp or set ytdlp.binary / YTDESK_YTDLP_BINARY)"
	}
	return err.Error()
}
