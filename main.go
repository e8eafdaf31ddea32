package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nconklindev/sas2xlsx/internal/controller"
	"github.com/nconklindev/sas2xlsx/internal/converter"
	"github.com/nconklindev/sas2xlsx/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sas2xlsx",
	Short: "Export a SAS dataset (.sas7bdat) to an Excel workbook (.xlsx)",
	Long: `sas2xlsx opens a small form to pick a .sas7bdat file and where to save it,
then writes every column and row to a single-sheet Excel workbook.

Use "sas2xlsx convert" to run one conversion without the form.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

var convertCmd = &cobra.Command{
	Use:   "convert SOURCE [DEST]",
	Short: "Convert one file without the interactive form",
	Long: `Convert reads SOURCE as a sas7bdat dataset and writes DEST as an xlsx workbook.
When DEST is omitted it is SOURCE with its extension replaced by .xlsx.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConvert,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sas2xlsx %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.SetVersionTemplate(fmt.Sprintf("sas2xlsx %s\ncommit: %s\nbuilt: %s\n", version, commit, date))

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sas2xlsx.yaml or ~/.config/sas2xlsx/sas2xlsx.yaml)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file")
	rootCmd.Flags().String("dir", "", "directory the file picker opens in (default: working directory)")
	rootCmd.Flags().Bool("derive", true, "start with the export path derived from the SAS file")

	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("dir", rootCmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("derive", rootCmd.Flags().Lookup("derive"))

	rootCmd.AddCommand(convertCmd, versionCmd)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("sas2xlsx")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sas2xlsx"))
		}
	}

	viper.SetEnvPrefix("SAS2XLSX")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func runTUI(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if path := viper.GetString("log_file"); path != "" {
		f, err := tea.LogToFile(path, "sas2xlsx")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Info("using config file", "path", used)
	}

	ctl := controller.New(converter.ConvertRequest,
		controller.WithDerivedPath(viper.GetBool("derive")),
		controller.WithLogger(logger),
	)

	p := tea.NewProgram(ui.InitialModel(ctl, viper.GetString("dir")), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error("program exited", "error", err)
		return err
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	if path := viper.GetString("log_file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, nil))
	}

	ctl := controller.New(converter.ConvertRequest,
		controller.WithDerivedPath(len(args) == 1),
		controller.WithLogger(logger),
	)
	ctl.SetSource(args[0])
	if len(args) == 2 {
		ctl.SetDestination(args[1])
	}

	outcomes, err := ctl.Trigger()
	if err != nil {
		return err
	}
	outcome := <-outcomes
	if outcome.Err != nil {
		return outcome.Err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d columns\n",
		outcome.Result.OutputFile, outcome.Result.RowsWritten, len(outcome.Result.Columns))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
