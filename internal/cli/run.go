package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csheth/repost/internal/app"
)

var (
	runSegment int
	runAll     bool
	runPublish bool
	runJSON    bool
)

var runCmd = &cobra.Command{
	Use:   "run <url>",
	Short: "Generate posts for an article without the UI",
	Long: `Fetch an article, generate a post for one segment (or all of them)
and optionally publish each post to the configured Telegram channel.

Segments are numbered from 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runSegment, "segment", "n", 1, "segment to generate, starting at 1")
	f.BoolVar(&runAll, "all", false, "generate every segment")
	f.BoolVar(&runPublish, "publish", false, "publish each generated post")
	f.BoolVar(&runJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(runCmd)
}

type runResult struct {
	Segment     int    `json:"segment"`
	Caption     string `json:"caption"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	ImageURL    string `json:"imageUrl"`
	Published   bool   `json:"published"`
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := buildApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.Session.Fetch(ctx, args[0]); err != nil {
		return err
	}
	total := a.Session.Snapshot().Total
	if total == 0 {
		return fmt.Errorf("no readable text at %s", args[0])
	}

	indexes, err := segmentIndexes(total)
	if err != nil {
		return err
	}

	results := make([]runResult, 0, len(indexes))
	for _, index := range indexes {
		res, err := generateOne(cmd, a, index)
		if err != nil {
			return err
		}
		results = append(results, res)
		if !runJSON {
			printResult(cmd, res, total)
		}
	}

	if runJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return nil
}

func segmentIndexes(total int) ([]int, error) {
	if runAll {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	if runSegment < 1 || runSegment > total {
		return nil, fmt.Errorf("segment %d is out of range (1-%d)", runSegment, total)
	}
	return []int{runSegment - 1}, nil
}

func generateOne(cmd *cobra.Command, a *app.App, index int) (runResult, error) {
	ctx := cmd.Context()
	if _, err := a.Session.GenerateAt(ctx, index); err != nil {
		return runResult{}, fmt.Errorf("segment %d: %w", index+1, err)
	}
	result := a.Session.Snapshot().Results[index]
	out := runResult{
		Segment:     index + 1,
		Caption:     result.Caption,
		ImagePrompt: result.ImagePrompt,
		ImageURL:    result.ImageURL,
	}
	if runPublish {
		if _, err := a.Session.PublishAt(ctx, index); err != nil {
			return out, fmt.Errorf("segment %d: %w", index+1, err)
		}
		out.Published = true
	}
	return out, nil
}

func printResult(cmd *cobra.Command, res runResult, total int) {
	cmd.Printf("=== Segment %d of %d ===\n", res.Segment, total)
	cmd.Println(res.Caption)
	cmd.Println()
	cmd.Printf("Image: %s\n", res.ImageURL)
	if res.Published {
		cmd.Println("Published to Telegram")
	}
	cmd.Println()
}
