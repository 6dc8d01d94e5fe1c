package commands

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/FrameStreamer/internal/config"
	"github.com/bryanchriswhite/FrameStreamer/internal/frames"
)

var probeCmd = &cobra.Command{
	Use:   "probe [directory]",
	Short: "Inspect a frame sequence directory",
	Long: `Inspect a frame sequence directory before playing it.

The probe counts numbered frames, detects their format and resolution,
reports gaps in the numbering, and checks for a music.mp3 soundtrack.
Without an argument it probes the configured directory.`,
	Example: `  # Probe the configured directory
  framestreamer probe

  # Probe a specific directory as JSON
  framestreamer probe /data/frames --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

var probeFormat string

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVarP(&probeFormat, "format", "f", "table", "output format (table or json)")
}

// probeReport summarizes what a sequence directory holds
type probeReport struct {
	Directory  string `json:"directory"`
	Format     string `json:"format"`
	FrameCount int    `json:"frame_count"`
	MaxIndex   int    `json:"max_index"`
	Missing    []int  `json:"missing,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	HasMusic   bool   `json:"has_music"`
	MusicBytes int64  `json:"music_bytes,omitempty"`
}

// missingListCap bounds how many numbering gaps a probe reports.
const missingListCap = 10

var frameNameRe = regexp.MustCompile(`^(\d+)\.([a-z0-9]+)$`)

func runProbe(cmd *cobra.Command, args []string) error {
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	} else {
		configMgr, err := config.NewManager(GetConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dir = configMgr.Get().Directory
	}

	report, err := probeDirectory(dir)
	if err != nil {
		return err
	}

	switch probeFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "table":
		return printProbeReport(report)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", probeFormat)
	}
}

func probeDirectory(dir string) (*probeReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	// Group numbered files by extension; the dominant extension wins
	byExt := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := frameNameRe.FindStringSubmatch(strings.ToLower(entry.Name()))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		byExt[m[2]] = append(byExt[m[2]], n)
	}

	format := ""
	for ext, indices := range byExt {
		if len(indices) > len(byExt[format]) {
			format = ext
		}
	}
	if format == "" {
		return nil, fmt.Errorf("no numbered frames found in %s", dir)
	}

	indices := byExt[format]
	sort.Ints(indices)
	maxIndex := indices[len(indices)-1]

	present := make(map[int]bool, len(indices))
	for _, n := range indices {
		present[n] = true
	}
	var missing []int
	for n := 1; n <= maxIndex && len(missing) < missingListCap; n++ {
		if !present[n] {
			missing = append(missing, n)
		}
	}

	report := &probeReport{
		Directory:  dir,
		Format:     format,
		FrameCount: len(indices),
		MaxIndex:   maxIndex,
		Missing:    missing,
	}

	// Resolution of the first frame; skipped silently when it cannot be
	// decoded
	src := frames.NewSource(dir, format, 0, 0, "")
	if f, err := os.Open(src.Path(indices[0] - 1)); err == nil {
		if imgCfg, _, err := image.DecodeConfig(f); err == nil {
			report.Width = imgCfg.Width
			report.Height = imgCfg.Height
		}
		f.Close()
	}

	if info, err := os.Stat(src.MusicPath()); err == nil {
		report.HasMusic = true
		report.MusicBytes = info.Size()
	}

	return report, nil
}

func printProbeReport(report *probeReport) error {
	fmt.Printf("Directory:  %s\n", report.Directory)
	fmt.Printf("Format:     %s\n", report.Format)
	fmt.Printf("Frames:     %d (max index %d)\n", report.FrameCount, report.MaxIndex)
	if len(report.Missing) > 0 {
		fmt.Printf("Missing:    %v", report.Missing)
		if len(report.Missing) == missingListCap {
			fmt.Printf(" (first %d shown)", missingListCap)
		}
		fmt.Println()
	}
	if report.Width > 0 {
		fmt.Printf("Resolution: %dx%d\n", report.Width, report.Height)
	}
	if report.HasMusic {
		fmt.Printf("Soundtrack: music.mp3 (%d bytes)\n", report.MusicBytes)
	} else {
		fmt.Println("Soundtrack: not found")
	}
	return nil
}
