package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List the user's CV documents, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return listDocuments(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(documentsCmd)
}

func listDocuments(ctx context.Context) error {
	application, _, userID, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	docs, err := application.Documents.ListDocuments(ctx, userID)
	if err != nil {
		return err
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tFILE\tTYPE\tNAME\tSKILLS")
	for _, doc := range docs {
		cv := doc.CVData.Data()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			doc.CreatedAt.Format("2006-01-02 15:04"),
			doc.FileName,
			doc.FileType,
			cv.PersonalInfo.Name,
			strings.Join(cv.Skills, ", "),
		)
	}
	return w.Flush()
}
