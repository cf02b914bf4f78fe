package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kalambet/intake/internal/config"
	"github.com/kalambet/intake/internal/intake"
	"github.com/kalambet/intake/internal/storage"
)

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an employee record",
	Long: `Submit an employee record to a running server.

Examples:
  intake submit --name 张三 --phone 13800000000 --department 研发 --type 正式员工
  intake submit --name Alice --phone 555-0100 --department Engineering --type "formal employee"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := intake.Input{}
		in.Name, _ = cmd.Flags().GetString("name")
		in.Phone, _ = cmd.Flags().GetString("phone")
		in.Department, _ = cmd.Flags().GetString("department")
		in.Type, _ = cmd.Flags().GetString("type")

		if err := in.Validate(); err != nil {
			return fmt.Errorf("--name, --phone, --department and --type are required")
		}

		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		id, err := submitEmployee(cmd.Context(), client, in)
		if err != nil {
			return err
		}
		printSuccess("Submitted %s", id)
		return nil
	},
}

func init() {
	submitCmd.Flags().String("name", "", "employee name")
	submitCmd.Flags().String("phone", "", "phone number")
	submitCmd.Flags().String("department", "", "department")
	submitCmd.Flags().String("type", "", "employee type label")
}

func submitEmployee(ctx context.Context, client *apiClient, in intake.Input) (string, error) {
	resp, err := client.post(ctx, "/api/submit", in)
	if err != nil {
		return "", err
	}
	var result struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", errors.New("server did not accept the submission")
	}
	return result.ID, nil
}

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List employee records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		records, err := fetchRecords(cmd.Context(), client)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if len(records) == 0 {
			fmt.Println("No employees found.")
			return nil
		}
		return printRecords(os.Stdout, records)
	},
}

func init() {
	listCmd.Flags().Bool("json", false, "print records as JSON")
}

func fetchRecords(ctx context.Context, client *apiClient) ([]storage.Record, error) {
	resp, err := client.get(ctx, "/api/data")
	if err != nil {
		return nil, err
	}
	var result struct {
		Data []storage.Record `json:"data"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

func printRecords(w io.Writer, records []storage.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE\tDEPARTMENT\tTYPE\tSUBMITTED\tORIGIN")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			colorize(colorCyan, r.ID), r.Name, r.Phone, r.Department, colorizeType(r.Type), r.Timestamp, r.IP)
	}
	return tw.Flush()
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate employee statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/stats")
		if err != nil {
			return err
		}
		var sum intake.Summary
		if err := decodeJSON(resp, &sum); err != nil {
			return err
		}

		printStatus("Total", "%d", sum.Total)
		printStatus("Formal", "%d", sum.Formal)
		printStatus("Intern", "%d", sum.Intern)
		printStatus("Departments", "%s", strings.Join(sum.Departments, ", "))
		for _, r := range sum.Recent {
			fmt.Printf("  %s  %s  %s\n", colorize(colorCyan, r.ID), r.Name, r.Department)
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download all records as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}
		path, n, err := downloadExport(cmd.Context(), client, output)
		if err != nil {
			return err
		}
		printSuccess("Exported %d bytes to %s", n, path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file or directory (default: server-provided name in the current directory)")
}

// downloadExport fetches the CSV export and writes it to output. An empty
// output or a directory uses the file name announced by the server.
func downloadExport(ctx context.Context, client *apiClient, output string) (string, int64, error) {
	resp, err := client.get(ctx, "/api/export?mode=download")
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", 0, err
	}

	path := output
	if info, err := os.Stat(output); output == "" || (err == nil && info.IsDir()) {
		name := attachmentName(resp.Header.Get("Content-Disposition"))
		if name == "" {
			name = "export.csv"
		}
		path = filepath.Join(output, name)
	}
	if _, err := os.Stat(path); err == nil {
		printWarning("overwriting %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating output file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, n, nil
}

// attachmentName extracts a safe base file name from a Content-Disposition
// header.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := filepath.Base(params["filename"])
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
