package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"astob-order-generator/cmd/ordergen/config"
	"astob-order-generator/internal/archive"
	"astob-order-generator/internal/pipeline"
	"astob-order-generator/pkg/errors"
)

// Flags for the generate command
var (
	astobFile    string
	keyFile      string
	templateFile string
	outZip       string
	outDir       string
	runDateFlag  string
)

// runDateLayout is the accepted form of the --run-date flag.
const runDateLayout = "2006-01-02"

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate payment order documents from an ASTOB export and a KEY file",
	Long: `Generate joins the transaction log with the client reference table,
groups transactions by client and renders one xlsx payment order per
client from the template. The documents are packaged into a zip archive.

Inputs may be xlsx workbooks or delimited text files; the column layout
is detected from the headers, and text encodings common in legacy
exports (Windows-1250, ISO-8859-2) are handled automatically.

Examples:
  # Basic generation, archive written next to the inputs
  ordergen generate --astob astob.xlsx --key key.xlsx --template ordin.xlsx

  # Custom archive location plus the individual documents
  ordergen generate --astob astob.csv --key key.csv --template ordin.xlsx \
    --out-zip /srv/out/ordine.zip --out-dir /srv/out/documents

  # Pin the document header date for reproducible output
  ordergen generate --astob astob.xlsx --key key.xlsx --template ordin.xlsx \
    --run-date 2024-08-05`,

	PreRunE: validateGenerateFlags,
	RunE:    runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Required flags
	generateCmd.Flags().StringVarP(&astobFile, "astob", "a", "", "path to the ASTOB transaction log (required)")
	generateCmd.Flags().StringVarP(&keyFile, "key", "k", "", "path to the KEY client reference table (required)")
	generateCmd.Flags().StringVarP(&templateFile, "template", "t", "", "path to the xlsx order template (required)")

	// Output flags
	generateCmd.Flags().StringVarP(&outZip, "out-zip", "o", archive.ArchiveName, "path of the output zip archive")
	generateCmd.Flags().StringVar(&outDir, "out-dir", "", "also write the individual documents into this directory")

	// Run date override
	generateCmd.Flags().StringVar(&runDateFlag, "run-date", "", "document header date (YYYY-MM-DD, default: today in Bucharest)")

	// Mark required flags
	generateCmd.MarkFlagRequired("astob")
	generateCmd.MarkFlagRequired("key")
	generateCmd.MarkFlagRequired("template")

	// Bind flags to viper
	viper.BindPFlag("astob", generateCmd.Flags().Lookup("astob"))
	viper.BindPFlag("key", generateCmd.Flags().Lookup("key"))
	viper.BindPFlag("template", generateCmd.Flags().Lookup("template"))
	viper.BindPFlag("out-zip", generateCmd.Flags().Lookup("out-zip"))
	viper.BindPFlag("out-dir", generateCmd.Flags().Lookup("out-dir"))
	viper.BindPFlag("run-date", generateCmd.Flags().Lookup("run-date"))
}

func validateGenerateFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	astobFile = viper.GetString("astob")
	keyFile = viper.GetString("key")
	templateFile = viper.GetString("template")
	outZip = viper.GetString("out-zip")
	outDir = viper.GetString("out-dir")
	runDateFlag = viper.GetString("run-date")

	// Validate required flags
	if astobFile == "" {
		return fmt.Errorf("astob is required")
	}
	if keyFile == "" {
		return fmt.Errorf("key is required")
	}
	if templateFile == "" {
		return fmt.Errorf("template is required")
	}
	if outZip == "" {
		return fmt.Errorf("out-zip cannot be empty")
	}

	// Validate file existence
	if err := validateFileExists(astobFile, "ASTOB transaction log"); err != nil {
		return err
	}
	if err := validateFileExists(keyFile, "KEY reference table"); err != nil {
		return err
	}
	if err := validateFileExists(templateFile, "order template"); err != nil {
		return err
	}

	// Validate the run date
	if runDateFlag != "" {
		if _, err := time.Parse(runDateLayout, runDateFlag); err != nil {
			return fmt.Errorf("invalid run date format. Use YYYY-MM-DD: %w", err)
		}
	}

	// Validate output destinations
	if dir := filepath.Dir(outZip); dir != "." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", dir)
		}
	}
	if outDir != "" {
		info, err := os.Stat(outDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("document output directory does not exist: %s", outDir)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("document output path is not a directory: %s", outDir)
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting order generation...\n")
		fmt.Fprintf(os.Stderr, "ASTOB file: %s\n", astobFile)
		fmt.Fprintf(os.Stderr, "KEY file: %s\n", keyFile)
		fmt.Fprintf(os.Stderr, "Template: %s\n", templateFile)
		fmt.Fprintf(os.Stderr, "Archive: %s\n", outZip)
		if outDir != "" {
			fmt.Fprintf(os.Stderr, "Documents: %s\n", outDir)
		}
	}

	astob, err := os.ReadFile(astobFile)
	if err != nil {
		return errors.FileError(errors.CodeFileNotFound, astobFile, err)
	}
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return errors.FileError(errors.CodeFileNotFound, keyFile, err)
	}
	template, err := os.ReadFile(templateFile)
	if err != nil {
		return errors.FileError(errors.CodeFileNotFound, templateFile, err)
	}

	opts := config.CreatePipelineOptions()
	if runDateFlag != "" {
		// Validated in PreRunE.
		opts.RunDate, _ = time.Parse(runDateLayout, runDateFlag)
	}

	output, err := pipeline.Generate(astob, key, template, opts)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outZip, output.Archive, 0644); err != nil {
		return errors.FileError(errors.CodeFileWrite, outZip, err)
	}

	if outDir != "" {
		for _, doc := range output.Documents {
			path := filepath.Join(outDir, doc.Name)
			if err := os.WriteFile(path, doc.Data, 0644); err != nil {
				return errors.FileError(errors.CodeFileWrite, path, err)
			}
		}
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nOrder generation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Generated %d documents for collection period %s.\n",
			len(output.Documents), output.CollectionPeriod)
		fmt.Fprintf(os.Stderr, "Archive written to %s.\n", outZip)
	}

	return nil
}
