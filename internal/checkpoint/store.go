package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// StatusSucceeded is the sentinel meaning the tool already ran successfully for a target.
	StatusSucceeded = "succeeded"
	// StatusFailed records a tool invocation that exited non-zero or timed out.
	StatusFailed = "failed"

	recordFieldSeparatorConstant      = "\t"
	recordFieldCountConstant          = 7
	recordLineTemplateConstant        = "%s\t%s\t%s\t%d\t%d\t%s\t%s\n"
	logFilePermissionsConstant        = 0o644
	logPathRequiredMessageConstant    = "checkpoint log path required"
	targetIdentifierRequiredMessage   = "checkpoint target identifier required"
	appendFailureTemplateConstant     = "appending checkpoint record for %s: %w"
	lookupFailureTemplateConstant     = "reading checkpoint log %s: %w"
	fieldSanitizerReplacementConstant = " "
	newlineCharacterConstant          = "\n"
	carriageReturnCharacterConstant   = "\r"
)

// Sentinel errors reported by the store.
var (
	ErrLogPathRequired          = errors.New(logPathRequiredMessageConstant)
	ErrTargetIdentifierRequired = errors.New(targetIdentifierRequiredMessage)
)

// Record captures one per-target outcome appended to the log.
type Record struct {
	TargetIdentifier string
	Status           string
	Timestamp        time.Time
	DurationSeconds  int
	ExitCode         int
	ToolIdentifier   string
	Note             string
}

// Store is an append-only checkpoint log. Append and LastStatus serialize
// through one mutex so concurrent workers never observe a partial record.
type Store struct {
	logPath string
	mutex   sync.Mutex
}

// NewStore constructs a Store persisting records at the provided path.
func NewStore(logPath string) (*Store, error) {
	if len(strings.TrimSpace(logPath)) == 0 {
		return nil, ErrLogPathRequired
	}
	return &Store{logPath: logPath}, nil
}

// Append durably writes one record to the log. Failures are I/O errors and are
// fatal to the run that observes them.
func (store *Store) Append(record Record) error {
	if len(strings.TrimSpace(record.TargetIdentifier)) == 0 {
		return ErrTargetIdentifierRequired
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	logFile, openError := os.OpenFile(store.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePermissionsConstant)
	if openError != nil {
		return fmt.Errorf(appendFailureTemplateConstant, record.TargetIdentifier, openError)
	}
	defer logFile.Close()

	recordLine := fmt.Sprintf(
		recordLineTemplateConstant,
		sanitizeField(record.TargetIdentifier),
		sanitizeField(record.Status),
		record.Timestamp.UTC().Format(time.RFC3339),
		record.DurationSeconds,
		record.ExitCode,
		sanitizeField(record.ToolIdentifier),
		sanitizeField(record.Note),
	)
	if _, writeError := logFile.WriteString(recordLine); writeError != nil {
		return fmt.Errorf(appendFailureTemplateConstant, record.TargetIdentifier, writeError)
	}
	return nil
}

// LastStatus returns the status of the last record for the target, or an empty
// string when the target has no records or the log does not exist yet.
func (store *Store) LastStatus(targetIdentifier string) (string, error) {
	if len(strings.TrimSpace(targetIdentifier)) == 0 {
		return "", ErrTargetIdentifierRequired
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	records, readError := store.readRecordsLocked()
	if readError != nil {
		return "", readError
	}

	lastStatus := ""
	for _, record := range records {
		if record.TargetIdentifier == targetIdentifier {
			lastStatus = record.Status
		}
	}
	return lastStatus, nil
}

// Records returns every well-formed record currently in the log.
func (store *Store) Records() ([]Record, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.readRecordsLocked()
}

func (store *Store) readRecordsLocked() ([]Record, error) {
	logFile, openError := os.Open(store.logPath)
	if openError != nil {
		if errors.Is(openError, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(lookupFailureTemplateConstant, store.logPath, openError)
	}
	defer logFile.Close()

	var records []Record
	lineScanner := bufio.NewScanner(logFile)
	for lineScanner.Scan() {
		record, parsed := parseRecordLine(lineScanner.Text())
		if parsed {
			records = append(records, record)
		}
	}
	if scanError := lineScanner.Err(); scanError != nil {
		return nil, fmt.Errorf(lookupFailureTemplateConstant, store.logPath, scanError)
	}
	return records, nil
}

func parseRecordLine(recordLine string) (Record, bool) {
	fields := strings.Split(recordLine, recordFieldSeparatorConstant)
	if len(fields) != recordFieldCountConstant {
		return Record{}, false
	}

	timestamp, timestampError := time.Parse(time.RFC3339, fields[2])
	if timestampError != nil {
		return Record{}, false
	}
	durationSeconds, durationError := strconv.Atoi(fields[3])
	if durationError != nil {
		return Record{}, false
	}
	exitCode, exitCodeError := strconv.Atoi(fields[4])
	if exitCodeError != nil {
		return Record{}, false
	}

	return Record{
		TargetIdentifier: fields[0],
		Status:           fields[1],
		Timestamp:        timestamp,
		DurationSeconds:  durationSeconds,
		ExitCode:         exitCode,
		ToolIdentifier:   fields[5],
		Note:             fields[6],
	}, true
}

func sanitizeField(fieldValue string) string {
	sanitizedValue := strings.ReplaceAll(fieldValue, recordFieldSeparatorConstant, fieldSanitizerReplacementConstant)
	sanitizedValue = strings.ReplaceAll(sanitizedValue, newlineCharacterConstant, fieldSanitizerReplacementConstant)
	return strings.ReplaceAll(sanitizedValue, carriageReturnCharacterConstant, fieldSanitizerReplacementConstant)
}
