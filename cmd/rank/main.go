package main

import (
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/tomw/arc-ci-ranker/internal/rank"
)

func main() {
	var (
		csvPath  = flag.String("csv", "arc_discovery_projects.csv", "Crawl CSV to rank over")
		codes    = flag.String("codes", "", "Comma-separated FoR codes to filter by")
		prefixes = flag.String("prefixes", "", "Comma-separated FoR code prefixes (e.g. 2-digit divisions)")
		top      = flag.Int("top", 30, "Number of investigators to show (0 = all)")
		ciName   = flag.String("ci", "", "Show projects for this investigator instead of a ranking")
	)
	flag.Parse()

	dataset, err := rank.LoadCSV(*csvPath)
	if err != nil {
		log.Fatal(err)
	}

	selectedCodes := splitCSV(*codes)
	selectedPrefixes := splitCSV(*prefixes)

	if *ciName != "" {
		renderDetail(dataset.Detail(*ciName, selectedCodes, selectedPrefixes))
		return
	}
	renderRanking(dataset.Rank(selectedCodes, selectedPrefixes, *top))
}

func renderRanking(result rank.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Chief Investigator", "Projects"})

	for i, entry := range result.Entries {
		t.AppendRow(table.Row{i + 1, entry.Investigator, entry.ProjectCount})
	}
	t.Render()

	if result.IsOverall {
		log.Print("Overall ranking (no FoR filter applied)")
	}
}

func renderDetail(detail rank.DetailResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Code", "Year", "Organisation", "Primary FoR", "URL"})

	for _, p := range detail.Projects {
		year := ""
		if p.Year != nil {
			year = strconv.Itoa(*p.Year)
		}
		t.AppendRow(table.Row{p.Code, year, p.Organisation, p.PrimaryClassification, p.URL})
	}
	t.Render()
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
