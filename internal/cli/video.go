package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/comment-consultant/internal/agent"
	"github.com/capitalize-ai/comment-consultant/internal/model"
	"github.com/capitalize-ai/comment-consultant/internal/service"
)

var (
	analyzeForce bool
	analyzeLimit int

	commentsTopic     string
	commentsSentiment string
	commentsLimit     int

	searchLimit int

	resetForce bool
)

var importCmd = &cobra.Command{
	Use:   "import <video> <file>",
	Short: "Import comments for a video",
	Long: `Import comments from a JSON array or a JSON-lines file. Use "-" to read
from stdin. Comments already stored are updated in place.

Examples:
  commentctl import dQw4w9WgXcQ comments.json
  commentctl import https://youtu.be/dQw4w9WgXcQ - < comments.jsonl`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <video>",
	Short: "Classify a video's comments by topic and sentiment",
	Long: `Classify a video's stored comments and save the summary. The latest
analysis is reused unless --force is given.

Examples:
  commentctl analyze dQw4w9WgXcQ
  commentctl analyze dQw4w9WgXcQ --force --limit 300`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var showCmd = &cobra.Command{
	Use:   "show <video>",
	Short: "Show the latest analysis of a video",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var commentsCmd = &cobra.Command{
	Use:   "comments <video>",
	Short: "List classified comments by topic and sentiment",
	Long: `List comments of the latest analysis, most liked first.

Examples:
  commentctl comments dQw4w9WgXcQ --sentiment negative
  commentctl comments dQw4w9WgXcQ --topic av_quality -n 20`,
	Args: cobra.ExactArgs(1),
	RunE: runComments,
}

var searchCmd = &cobra.Command{
	Use:   "search <video> <question>",
	Short: "Find the comments most relevant to a question",
	Args:  cobra.ExactArgs(2),
	RunE:  runSearch,
}

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "List videos with stored comments",
	Args:  cobra.NoArgs,
	RunE:  runVideos,
}

var resetCmd = &cobra.Command{
	Use:   "reset <video>",
	Short: "Delete every analysis of a video",
	Long: `Delete every analysis of a video. Imported comments are kept.
Requires confirmation unless --force is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeForce, "force", "f", false, "run a new analysis even if one exists")
	analyzeCmd.Flags().IntVarP(&analyzeLimit, "limit", "n", 0, "max comments to classify (0 uses ANALYSIS_LIMIT)")

	commentsCmd.Flags().StringVarP(&commentsTopic, "topic", "t", "", "filter by topic id")
	commentsCmd.Flags().StringVarP(&commentsSentiment, "sentiment", "s", "", "filter by sentiment: positive, neutral, negative")
	commentsCmd.Flags().IntVarP(&commentsLimit, "limit", "n", 10, "max results")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")

	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip confirmation")
}

func runImport(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if args[1] != "-" {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open comments: %w", err)
		}
		defer f.Close()
		r = f
	}

	comments, err := service.DecodeComments(r)
	if err != nil {
		return err
	}
	resp, err := application.Analysis.ImportComments(context.Background(), videoID, comments)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d comments for %s.\n", resp.Imported, resp.VideoID)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}

	report, err := application.Analysis.Analyze(context.Background(), videoID, model.AnalyzeRequest{
		Force: analyzeForce,
		Limit: analyzeLimit,
	})
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("no comments to analyse for %s, import some first", videoID)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.FromCache {
		fmt.Fprintln(out, "Using the latest stored analysis (pass --force to run a new one).")
	} else {
		fmt.Fprintf(out, "Analysed %d of %d comments in %.1fs, %d classified.\n",
			report.Stats.UsedForAnalysis, report.Stats.TotalFetched, report.ProcessingSeconds, report.Stats.Classified)
	}
	fmt.Fprintln(out)
	printSnapshot(out, application.Taxonomy, &report.Snapshot)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}

	snap, err := application.Store.LatestAnalysis(context.Background(), videoID)
	if errors.Is(err, model.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has not been analysed yet.\n", videoID)
		return nil
	}
	if err != nil {
		return err
	}
	printSnapshot(cmd.OutOrStdout(), application.Taxonomy, snap)
	return nil
}

func runComments(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}
	if commentsTopic != "" && !application.Taxonomy.Contains(commentsTopic) {
		return fmt.Errorf("unknown topic %q, run 'commentctl topics' for the list", commentsTopic)
	}
	var sentiment model.Sentiment
	if commentsSentiment != "" {
		s, ok := model.ParseSentiment(commentsSentiment)
		if !ok {
			return fmt.Errorf("unknown sentiment %q", commentsSentiment)
		}
		sentiment = s
	}

	comments, err := application.Store.FilteredComments(context.Background(), videoID, model.CommentFilter{
		TopicID:   commentsTopic,
		Sentiment: sentiment,
		Limit:     commentsLimit,
	})
	if err != nil {
		return err
	}
	printComments(cmd.OutOrStdout(), comments)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}

	comments, err := application.Store.Comments(context.Background(), videoID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	matches := agent.Search(comments, args[1], searchLimit)
	if len(matches) == 0 {
		fmt.Fprintln(out, "No relevant comments found.")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "- [%.2f] %s (%d likes)\n", m.Score, truncate(m.Text, 200), m.LikeCount)
	}
	return nil
}

func runVideos(cmd *cobra.Command, args []string) error {
	videos, err := application.Store.Videos(context.Background())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(videos) == 0 {
		fmt.Fprintln(out, "No videos found.")
		return nil
	}
	fmt.Fprintf(out, "Videos (%d):\n\n", len(videos))
	for _, v := range videos {
		analysed := "not analysed"
		if v.AnalyzedAt != nil {
			analysed = "analysed " + v.AnalyzedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "- %s  %d comments, %s\n", v.VideoID, v.Comments, analysed)
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	videoID, err := videoArg(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !resetForce {
		fmt.Fprintf(out, "Delete every analysis of %s? [y/N]: ", videoID)
		var answer string
		fmt.Fscanln(cmd.InOrStdin(), &answer)
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := application.Store.DeleteAnalyses(context.Background(), videoID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted analyses of %s.\n", videoID)
	return nil
}
