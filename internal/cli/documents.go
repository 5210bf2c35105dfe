package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flowcanvas/flowcanvas/pkg/types"
)

var documentsKB string

// documentsCmd is the parent command for knowledge base documents.
var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage knowledge base documents",
}

var documentsListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List uploaded documents",
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(loadConfig())
		docs, err := c.ListDocuments(context.Background(), types.NodeID(documentsKB))
		if err != nil {
			exitError("failed to list documents: %v", err)
		}
		if printFormatted(docs) {
			return
		}
		if len(docs) == 0 {
			fmt.Println("No documents found.")
			return
		}
		renderDocuments(os.Stdout, docs)
	},
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document to a knowledge base",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			exitError("failed to open file: %v", err)
		}
		defer f.Close()

		c := newClient(loadConfig())
		doc, err := c.UploadDocument(context.Background(), types.NodeID(documentsKB), filepath.Base(args[0]), f)
		if err != nil {
			exitError("failed to upload document: %v", err)
		}
		if printFormatted(doc) {
			return
		}
		fmt.Printf("Uploaded %s (id: %s, %d bytes, %s)\n", doc.Filename, doc.ID, doc.FileSize, doc.Processed)
	},
}

var documentsDeleteCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Delete a document",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := newClient(loadConfig())
		if err := c.DeleteDocument(context.Background(), types.DocumentID(args[0])); err != nil {
			exitError("failed to delete document: %v", err)
		}
		fmt.Printf("Deleted document: %s\n", args[0])
	},
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsUploadCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)

	documentsListCmd.Flags().StringVar(&documentsKB, "kb", "", "only documents of this knowledge base node")
	documentsUploadCmd.Flags().StringVar(&documentsKB, "kb", "", "knowledge base node id to attach the document to")
}

func renderDocuments(w io.Writer, docs []types.Document) {
	table := newTable(w, "ID", "Filename", "Size", "Knowledge Base", "Status", "Created")
	for _, d := range docs {
		kb := string(d.KnowledgebaseID)
		if kb == "" {
			kb = "-"
		}
		table.Append([]string{
			shortID(string(d.ID)),
			truncate(d.Filename, 30),
			strconv.FormatInt(d.FileSize, 10),
			kb,
			string(d.Processed),
			d.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}
