package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/alex-user-go/shipcompare/internal/api"
	"github.com/alex-user-go/shipcompare/internal/compare"
)

// printJSONOr emits payload as JSON under --json, otherwise runs the table
// renderer.
func printJSONOr(c *cli.Context, payload any, table func()) error {
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}
	table()
	return nil
}

func printRanked(r *compare.Ranked) {
	fmt.Printf("Shipping to %s: %d retailer(s) compared\n\n", r.Country.Name, r.TotalResults)

	if len(r.Results) > 0 {
		fmt.Println("Results (sorted by lowest cost):")
		for i, comp := range r.Results {
			fmt.Printf("\n%d. %s\n", i+1, comp.RetailerName)
			for j, m := range comp.DeliveryMethods {
				marker := " "
				if j == 0 {
					marker = "*" // best value
				}
				line := fmt.Sprintf("   %s %-20s %-10s %s", marker, m.Method, m.Cost, m.Duration)
				if m.FreeShippingThreshold != "" {
					line += fmt.Sprintf("  (free over %s)", m.FreeShippingThreshold)
				}
				fmt.Println(line)
				if m.AdditionalNotes != "" {
					fmt.Printf("     %s\n", m.AdditionalNotes)
				}
			}
		}
	}

	if len(r.NoData) > 0 {
		names := make([]string, 0, len(r.NoData))
		for _, comp := range r.NoData {
			names = append(names, comp.RetailerName)
		}
		fmt.Printf("\nNo shipping data: %s\n", strings.Join(names, ", "))
	}
}

func printHistory(items []compare.History) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOUNTRY\tRETAILERS\tCREATED")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.ID, item.CountryName, strings.Join(item.RetailerNames, ", "), item.CreatedAt)
	}
	_ = w.Flush()
}

func printRetailers(retailers []compare.Retailer) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tWEBSITE")
	for _, r := range retailers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.ID, r.Name, r.Website)
	}
	_ = w.Flush()
}

func printCountries(countries []compare.Country) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCODE")
	for _, c := range countries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Code)
	}
	_ = w.Flush()
}

func printDeliveryData(rows []api.DeliveryData) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RETAILER\tCOUNTRY\tMETHOD\tCOST\tDURATION\tCARRIER")
	for _, row := range rows {
		retailer := row.RetailerID
		if row.Retailer != nil {
			retailer = row.Retailer.Name
		}
		country := row.CountryID
		if row.Country != nil {
			country = row.Country.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", retailer, country, row.Method, row.Cost, row.Duration, row.Carrier)
	}
	_ = w.Flush()
}
