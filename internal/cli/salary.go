package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ppiankov/jobpan/internal/salary"
)

var (
	salaryMin      int64
	salaryMax      int64
	salaryCurrency string
	salaryJSON     bool
)

var salaryCmd = &cobra.Command{
	Use:   "salary <text>",
	Short: "Extract salary figures from text",
	Long: "salary prints every salary figure or range found in the text. --min and --max keep only " +
		"figures whose yearly amount overlaps the bounds.",
	Args: cobra.MinimumNArgs(1),
	RunE: salaryAction,
}

func init() {
	salaryCmd.Flags().Int64Var(&salaryMin, "min", 0, "minimum yearly salary (0 for none)")
	salaryCmd.Flags().Int64Var(&salaryMax, "max", 0, "maximum yearly salary (0 for none)")
	salaryCmd.Flags().StringVar(&salaryCurrency, "currency", salary.DefaultCurrency, "currency of the bounds")
	salaryCmd.Flags().BoolVar(&salaryJSON, "json", false, "print JSON")
	rootCmd.AddCommand(salaryCmd)
}

func salaryAction(_ *cobra.Command, args []string) error {
	if salaryMin < 0 || salaryMax < 0 {
		return fmt.Errorf("--min and --max must not be negative")
	}
	if salaryMin > 0 && salaryMax > 0 && salaryMin > salaryMax {
		return fmt.Errorf("--min (%d) must not exceed --max (%d)", salaryMin, salaryMax)
	}

	text := strings.Join(args, " ")
	res := salary.NewExtractor().Scan(text)

	found := res.Salaries
	b := salary.Bounds{Currency: strings.ToUpper(salaryCurrency)}
	if salaryMin > 0 {
		b.Min = salary.Amount(decimal.NewFromInt(salaryMin))
	}
	if salaryMax > 0 {
		b.Max = salary.Amount(decimal.NewFromInt(salaryMax))
	}
	if !b.IsZero() {
		found = salary.FilterByRange(found, b)
	}

	if salaryJSON {
		return printSalariesJSON(os.Stdout, found)
	}
	printSalaries(os.Stdout, found, len(res.Salaries)-len(found))
	for _, f := range res.Failures {
		fmt.Printf("warning: %s: %q: %v\n", f.Pattern, f.RawText, f.Err)
	}
	return nil
}

func printSalaries(w io.Writer, found []salary.Range, filtered int) {
	if len(found) == 0 {
		fmt.Fprintln(w, "No salary found.")
	}
	for _, r := range found {
		yearly := salary.NormalizeToYearly(r)
		fmt.Fprintf(w, "%-32s %q\n", r.Human(), r.RawText)
		if r.Period != salary.Yearly {
			fmt.Fprintf(w, "  yearly: %s\n", yearly.Human())
		}
	}
	if filtered > 0 {
		fmt.Fprintf(w, "(%d outside the given range)\n", filtered)
	}
}

func printSalariesJSON(w io.Writer, found []salary.Range) error {
	if found == nil {
		found = []salary.Range{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(found)
}
