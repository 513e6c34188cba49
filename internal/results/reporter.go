package results

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	summaryHeaderConstant         = "Run summary"
	summaryTotalTemplateConstant  = "  targets: %d"
	summaryWorkflowHeaderConstant = "  workflow:"
	summaryCommitHeaderConstant   = "  commit:"
	summaryCountTemplateConstant  = "    %s: %d"
	summaryLineSeparatorConstant  = "\n"
)

// Summary aggregates per-target result records into run totals.
type Summary struct {
	TotalTargets   int
	WorkflowCounts map[WorkflowStatus]int
	CommitCounts   map[CommitStatus]int
}

// FailureCount reports how many targets failed their workflow or their commit.
func (summary Summary) FailureCount() int {
	return summary.WorkflowCounts[WorkflowStatusRanFail] + summary.CommitCounts[CommitStatusCommitFailed]
}

// Reporter reads every result record of a run and renders the aggregate block.
type Reporter struct {
	resultsDirectory string
}

// NewReporter constructs a Reporter over the provided results directory.
func NewReporter(resultsDirectory string) (*Reporter, error) {
	if len(strings.TrimSpace(resultsDirectory)) == 0 {
		return nil, ErrResultsDirectoryRequired
	}
	return &Reporter{resultsDirectory: resultsDirectory}, nil
}

// Summarize tallies every readable record. Unreadable or partial records are
// skipped rather than aborting the tally.
func (reporter *Reporter) Summarize() (Summary, error) {
	summary := Summary{
		WorkflowCounts: map[WorkflowStatus]int{},
		CommitCounts:   map[CommitStatus]int{},
	}

	directoryEntries, readError := os.ReadDir(reporter.resultsDirectory)
	if readError != nil {
		if os.IsNotExist(readError) {
			return summary, nil
		}
		return Summary{}, readError
	}

	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() || !strings.HasSuffix(directoryEntry.Name(), recordFileExtensionConstant) {
			continue
		}
		recordContents, fileError := os.ReadFile(filepath.Join(reporter.resultsDirectory, directoryEntry.Name()))
		if fileError != nil {
			continue
		}
		var record Record
		if decodeError := yaml.Unmarshal(recordContents, &record); decodeError != nil {
			continue
		}
		if len(record.TargetIdentifier) == 0 {
			continue
		}
		summary.TotalTargets++
		if len(record.WorkflowStatus) > 0 {
			summary.WorkflowCounts[record.WorkflowStatus]++
		}
		if len(record.CommitStatus) > 0 {
			summary.CommitCounts[record.CommitStatus]++
		}
	}
	return summary, nil
}

// SummarizeRecords tallies in-memory records. Dry runs persist nothing, so
// their summaries come from the records the scheduler returns.
func SummarizeRecords(records []Record) Summary {
	summary := Summary{
		WorkflowCounts: map[WorkflowStatus]int{},
		CommitCounts:   map[CommitStatus]int{},
	}
	for _, record := range records {
		if len(record.TargetIdentifier) == 0 {
			continue
		}
		summary.TotalTargets++
		if len(record.WorkflowStatus) > 0 {
			summary.WorkflowCounts[record.WorkflowStatus]++
		}
		if len(record.CommitStatus) > 0 {
			summary.CommitCounts[record.CommitStatus]++
		}
	}
	return summary
}

// Render formats the summary as the human-readable aggregate block.
func Render(summary Summary) string {
	reportLines := []string{
		summaryHeaderConstant,
		fmt.Sprintf(summaryTotalTemplateConstant, summary.TotalTargets),
		summaryWorkflowHeaderConstant,
	}
	reportLines = append(reportLines, renderWorkflowCounts(summary.WorkflowCounts)...)
	reportLines = append(reportLines, summaryCommitHeaderConstant)
	reportLines = append(reportLines, renderCommitCounts(summary.CommitCounts)...)
	return strings.Join(reportLines, summaryLineSeparatorConstant)
}

func renderWorkflowCounts(workflowCounts map[WorkflowStatus]int) []string {
	statusNames := make([]string, 0, len(workflowCounts))
	for statusName := range workflowCounts {
		statusNames = append(statusNames, string(statusName))
	}
	sort.Strings(statusNames)

	countLines := make([]string, 0, len(statusNames))
	for _, statusName := range statusNames {
		countLines = append(countLines, fmt.Sprintf(summaryCountTemplateConstant, statusName, workflowCounts[WorkflowStatus(statusName)]))
	}
	return countLines
}

func renderCommitCounts(commitCounts map[CommitStatus]int) []string {
	statusNames := make([]string, 0, len(commitCounts))
	for statusName := range commitCounts {
		statusNames = append(statusNames, string(statusName))
	}
	sort.Strings(statusNames)

	countLines := make([]string, 0, len(statusNames))
	for _, statusName := range statusNames {
		countLines = append(countLines, fmt.Sprintf(summaryCountTemplateConstant, statusName, commitCounts[CommitStatus(statusName)]))
	}
	return countLines
}
