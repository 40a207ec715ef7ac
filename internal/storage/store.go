package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/kimnl/internal/atoms"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string     `json:"id"`
	Config    string     `json:"config"`
	Model     string     `json:"model"`
	Timestamp time.Time  `json:"timestamp"`
	Atoms     int        `json:"atoms"`
	Ghosts    int        `json:"ghosts"`
	Cutoff    float64    `json:"cutoff"`
	Numbering string     `json:"numbering"`
	Strategy  string     `json:"strategy"`
	Energy    float64    `json:"energy"`
	MaxForce  float64    `json:"max_force"`
	Virial    [6]float64 `json:"virial"`
	Queries   int        `json:"queries"`
	BuildMs   float64    `json:"build_ms"`
	CalcMs    float64    `json:"calc_ms"`
}

// Save writes metadata.json and forces.csv under a new run directory. ID
// and Timestamp are assigned here.
func (s *Store) Save(meta RunMetadata, forces []atoms.Vec3) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Config, now.UnixNano())
	meta.Timestamp = now

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "forces.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write([]string{"atom", "fx", "fy", "fz"}); err != nil {
		return "", err
	}
	for i, f := range forces {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(f[0], 'g', 17, 64),
			strconv.FormatFloat(f[1], 'g', 17, 64),
			strconv.FormatFloat(f[2], 'g', 17, 64),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadForces reads forces.csv back as one triple per atom.
func (s *Store) LoadForces(runID string) ([][3]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "forces.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][3]float64{}, nil
	}

	forces := make([][3]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 4 {
			return nil, fmt.Errorf("forces.csv line %d: want 4 fields, got %d", i+2, len(record))
		}
		var f [3]float64
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(record[k+1], 64)
			if err != nil {
				return nil, fmt.Errorf("forces.csv line %d: %w", i+2, err)
			}
			f[k] = v
		}
		forces = append(forces, f)
	}
	return forces, nil
}
