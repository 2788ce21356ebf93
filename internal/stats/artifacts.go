package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"popgen/internal/genotype"
	"popgen/internal/model"
)

const (
	configFile  = "config.json"
	historyFile = "history.json"
	summaryFile = "summary.json"

	runIndexFile = "runs.json"
)

type RunArtifacts struct {
	Record  model.RunRecord
	History []genotype.Data
}

// WriteRunArtifacts writes config, history, one CSV per computable
// statistic and a summary into baseDir/<run id>.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Record.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Record.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Record); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), artifacts.History); err != nil {
		return "", err
	}

	sexed := len(artifacts.History) > 0 && artifacts.History[0].Sexed
	summaries := make(map[string][]Summary)
	for _, name := range Names() {
		if name == StatEffectivePopulations && !sexed {
			continue
		}
		series, err := Extract(name, artifacts.History)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		if err := WriteSeriesCSV(filepath.Join(runDir, name+".csv"), series); err != nil {
			return "", err
		}
		summaries[name] = Summarize(series)
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), summaries); err != nil {
		return "", err
	}
	return runDir, nil
}

// ExportRunArtifacts copies every artifact of runID into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	entries, err := os.ReadDir(src)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// ReadRunHistory loads and validates the history artifact of runID.
func ReadRunHistory(baseDir, runID string) ([]genotype.Data, bool, error) {
	path := filepath.Join(baseDir, runID, historyFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var history []genotype.Data
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, false, err
	}
	for i, gen := range history {
		if err := gen.Validate(); err != nil {
			return nil, false, fmt.Errorf("%s: generation %d: %w", path, i, err)
		}
	}
	return history, true, nil
}

// AppendRunIndex records a run in baseDir's run index, replacing any entry
// with the same id.
func AppendRunIndex(baseDir string, record model.RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].ID == record.ID {
			index[i] = record
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	// Newest first, so a new record goes in front of equal timestamps.
	index = append([]model.RunRecord{record}, index...)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the indexed runs newest first. A missing index is
// an empty list.
func ListRunIndex(baseDir string) ([]model.RunRecord, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.RunRecord{}, nil
		}
		return nil, err
	}

	var records []model.RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAtUTC > records[j].CreatedAtUTC
	})
	return records, nil
}

// WriteSeriesCSV writes one row per generation with one column per label.
func WriteSeriesCSV(path string, series Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(append([]string{"generation"}, series.Labels...)); err != nil {
		return err
	}
	for g := 0; g < series.Generations(); g++ {
		row := make([]string, 0, len(series.Labels)+1)
		row = append(row, strconv.Itoa(g))
		for _, label := range series.Labels {
			row = append(row, strconv.FormatFloat(series.Values[label][g], 'f', -1, 64))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadSeriesCSV reads a file written by WriteSeriesCSV. Name, title and
// axis label are not stored and come back empty.
func ReadSeriesCSV(path string) (Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return Series{}, fmt.Errorf("%s: missing header", path)
		}
		return Series{}, err
	}
	if len(header) == 0 || header[0] != "generation" {
		return Series{}, fmt.Errorf("%s: unexpected header %v", path, header)
	}
	labels := append([]string(nil), header[1:]...)
	series := Series{Labels: labels, Values: make(map[string][]float64, len(labels))}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Series{}, err
		}
		for i, label := range labels {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return Series{}, fmt.Errorf("%s: %w", path, err)
			}
			series.Values[label] = append(series.Values[label], v)
		}
	}
	return series, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
