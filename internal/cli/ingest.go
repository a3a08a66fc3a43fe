package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"studysync/internal/service"
)

var (
	ingestCategory string
	ingestUpload   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Extract, embed and index a document",
	Long: `Ingests a PDF or image into the vector index and records its metadata.
With --upload the file is first copied to object storage so chunks and the
timetable fast path can link to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestCategory, "category", "", "document category (default \"general\")")
	ingestCmd.Flags().BoolVar(&ingestUpload, "upload", false, "store the file in object storage before indexing")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
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

	req := service.IngestRequest{Bytes: data, Filename: filepath.Base(path), Category: ingestCategory}
	run := a.Pipeline.Ingest
	if ingestUpload {
		run = a.Pipeline.UploadAndIngest
	}
	res, err := run(ctx, req)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Document: %s (%s)\n", res.Document.Name, res.Document.ID)
	cmd.Printf("Category: %s\n", res.Document.Category)
	if res.Document.SourceURL != "" {
		cmd.Printf("URL:      %s\n", res.Document.SourceURL)
	}
	cmd.Printf("Chunks:   %d\n", res.ChunkCount)
	cmd.Printf("Extract:  %s\n", res.Extraction)
	if res.Document.Summary != "" {
		cmd.Println()
		cmd.Println(res.Document.Summary)
	}
	return nil
}
