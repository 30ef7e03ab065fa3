package flowdata

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// phenotypeFile is the optional per-directory study-variable table.
const phenotypeFile = "phenotype.csv"

// LoadDir builds a MemorySource from a directory of per-sample CSV event
// files. Each file's header names its channels; a header cell may be
// written "name:marker" to attach a marker. An optional phenotype.csv
// (first column = sample id) supplies study variables. Sample order is
// the sorted file order, so repeated loads are deterministic.
func LoadDir(root string) (*MemorySource, error) {
	files, err := findCSVFiles(root)
	if err != nil {
		return nil, fmt.Errorf("scanning data directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no sample files found under %s", root)
	}

	phenotypes, err := loadPhenotypes(filepath.Join(root, phenotypeFile))
	if err != nil {
		return nil, err
	}

	var channels []Channel
	var samples Collection
	for _, path := range files {
		frame, chans, err := loadFrame(path)
		if err != nil {
			return nil, err
		}
		if channels == nil {
			channels = chans
		}
		id := strings.TrimSuffix(filepath.Base(path), ".csv")
		samples = append(samples, &Sample{
			ID:        id,
			Frame:     frame,
			Phenotype: phenotypes[id],
		})
	}
	return NewMemorySource(channels, samples), nil
}

// findCSVFiles recursively collects sample files, skipping the phenotype
// table, and returns them sorted.
func findCSVFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".csv") && d.Name() != phenotypeFile {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// loadFrame reads one sample's event matrix.
func loadFrame(path string) (*Frame, []Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sample file: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sample file %s is empty", path)
	}

	channels := make([]Channel, len(records[0]))
	names := make([]string, len(records[0]))
	for i, cell := range records[0] {
		name, marker, _ := strings.Cut(strings.TrimSpace(cell), ":")
		channels[i] = Channel{Name: name, Marker: marker}
		names[i] = name
	}

	events := make([][]float64, 0, len(records)-1)
	for rowNum, rec := range records[1:] {
		ev := make([]float64, len(rec))
		for i, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: %w", path, rowNum+2, err)
			}
			ev[i] = v
		}
		events = append(events, ev)
	}
	return &Frame{Channels: names, Events: events}, channels, nil
}

// loadPhenotypes reads the optional study-variable table, keyed by the
// first column.
func loadPhenotypes(path string) (map[string]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening phenotype table: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading phenotype table: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	header := records[0]
	out := make(map[string]map[string]string, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		vars := make(map[string]string, len(header)-1)
		for i := 1; i < len(header) && i < len(rec); i++ {
			vars[strings.TrimSpace(header[i])] = strings.TrimSpace(rec[i])
		}
		out[strings.TrimSpace(rec[0])] = vars
	}
	return out, nil
}
