package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/facial-recognition/internal/facial"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll facial templates from image files",
	Long: `Enroll a single image for a user, or every image in a directory.
In directory mode the file name without extension is the username,
so faces/alice.jpg enrolls user "alice".

Examples:
  facial-recognition enroll --username alice --file alice.jpg
  facial-recognition enroll --dir ./faces`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("dir", "", "Directory of <username>.<ext> images")
	enrollCmd.Flags().String("username", "", "Username for single-file enrollment")
	enrollCmd.Flags().String("file", "", "Image file for single-file enrollment")
	enrollCmd.Flags().Bool("quiet", false, "Hide the progress bar")
}

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".tif": {}, ".tiff": {}, ".webp": {},
}

// enrollJob is one image to enroll.
type enrollJob struct {
	username string
	path     string
}

// collectEnrollJobs lists the images of dir, sorted by file name.
func collectEnrollJobs(dir string) ([]enrollJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var jobs []enrollJob
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := imageExtensions[ext]; !ok {
			continue
		}
		jobs = append(jobs, enrollJob{
			username: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			path:     filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })
	return jobs, nil
}

// enrollSummary counts batch outcomes.
type enrollSummary struct {
	created int
	updated int
	failed  map[string]error
}

// enrollFiles enrolls each job and reports progress on bar when non-nil.
func enrollFiles(ctx context.Context, svc *facial.Service, jobs []enrollJob, bar *progressbar.ProgressBar) enrollSummary {
	summary := enrollSummary{failed: make(map[string]error)}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			summary.failed[job.path] = err
			continue
		}
		res, err := enrollFile(ctx, svc, job)
		switch {
		case err != nil:
			summary.failed[job.path] = err
		case res.Outcome == facial.OutcomeCreated:
			summary.created++
		default:
			summary.updated++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return summary
}

func enrollFile(ctx context.Context, svc *facial.Service, job enrollJob) (*facial.EnrollResult, error) {
	data, err := os.ReadFile(job.path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return svc.Enroll(ctx, facial.EnrollRequest{
		Username:   job.username,
		Image:      data,
		SourceName: filepath.Base(job.path),
	})
}

func printEnrollSummary(w io.Writer, s enrollSummary) {
	fmt.Fprintf(w, "\nCreated: %d, updated: %d, failed: %d\n", s.created, s.updated, len(s.failed))
	if len(s.failed) == 0 {
		return
	}
	paths := make([]string, 0, len(s.failed))
	for p := range s.failed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(w, "  - %s: %v\n", p, s.failed[p])
	}
}

func runEnroll(cmd *cobra.Command, args []string) error {
	dir := mustGetString(cmd, "dir")
	username := mustGetString(cmd, "username")
	file := mustGetString(cmd, "file")
	quiet := mustGetBool(cmd, "quiet")

	var jobs []enrollJob
	switch {
	case dir != "" && (username != "" || file != ""):
		return errors.New("use either --dir or --username/--file, not both")
	case dir != "":
		var err error
		if jobs, err = collectEnrollJobs(dir); err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No images found.")
			return nil
		}
	case username != "" && file != "":
		jobs = []enrollJob{{username: username, path: file}}
	default:
		return errors.New("either --dir or both --username and --file are required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	if !quiet && len(jobs) > 1 {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetDescription("Enrolling faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	summary := enrollFiles(ctx, a.service, jobs, bar)
	printEnrollSummary(cmd.OutOrStdout(), summary)
	if len(summary.failed) == len(jobs) {
		return errors.New("no images were enrolled")
	}
	return nil
}
