// Package storage persists run records with pluggable file encodings,
// bounded backups and background autosave.
package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Record is one persisted unit, an arbitrary key-value mapping.
type Record map[string]interface{}

// Codec reads and writes a record list in one file encoding. New formats
// register by extension without touching the engine.
type Codec interface {
	Read(path string) ([]Record, error)
	Write(path string, records []Record) error
}

var codecs = map[string]Codec{
	".json":   jsonCodec{},
	".jsonl":  jsonlCodec{},
	".ndjson": jsonlCodec{},
	".txt":    jsonlCodec{},
	".csv":    csvCodec{},
	".xml":    xmlCodec{},
}

// CodecFor returns the codec registered for path's extension.
func CodecFor(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	codec, ok := codecs[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported storage format: %q (supported: %s)", ext, strings.Join(SupportedExtensions(), ", "))
	}
	return codec, nil
}

// SupportedExtensions lists registered extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(codecs))
	for ext := range codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// jsonCodec stores the whole list as one JSON array.
type jsonCodec struct{}

func (jsonCodec) Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt JSON file %s: %w", path, err)
	}
	return records, nil
}

func (jsonCodec) Write(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// jsonlCodec stores one JSON object per line. Blank lines are skipped.
type jsonlCodec struct{}

func (jsonlCodec) Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("corrupt record at %s:%d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

func (jsonlCodec) Write(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// csvCodec stores records as rows under a header built from the sorted
// union of all keys. Missing keys become empty cells.
type csvCodec struct{}

func (csvCodec) Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("corrupt CSV file %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, key := range header {
			if i < len(row) && row[i] != "" {
				rec[key] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (csvCodec) Write(path string, records []Record) error {
	keySet := make(map[string]struct{})
	for _, rec := range records {
		for key := range rec {
			keySet[key] = struct{}{}
		}
	}
	header := make([]string, 0, len(keySet))
	for key := range keySet {
		header = append(header, key)
	}
	sort.Strings(header)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for _, rec := range records {
		for i, key := range header {
			if v, ok := rec[key]; ok {
				row[i] = fmt.Sprintf("%v", v)
			} else {
				row[i] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// xmlCodec stores one <item> per record with sanitized element names and
// count/timestamp metadata on the root.
type xmlCodec struct{}

var xmlNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type xmlField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type xmlItem struct {
	XMLName xml.Name   `xml:"item"`
	Fields  []xmlField `xml:",any"`
}

type xmlDoc struct {
	XMLName   xml.Name  `xml:"records"`
	Count     int       `xml:"count,attr"`
	Generated string    `xml:"generated,attr"`
	Items     []xmlItem `xml:"item"`
}

func sanitizeXMLName(key string) string {
	name := xmlNameSanitizer.ReplaceAllString(key, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "f_" + name
	}
	return name
}

func (xmlCodec) Read(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc xmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt XML file %s: %w", path, err)
	}

	records := make([]Record, 0, len(doc.Items))
	for _, item := range doc.Items {
		rec := make(Record, len(item.Fields))
		for _, f := range item.Fields {
			rec[f.XMLName.Local] = f.Value
		}
		records = append(records, rec)
	}
	return records, nil
}

func (xmlCodec) Write(path string, records []Record) error {
	doc := xmlDoc{
		Count:     len(records),
		Generated: time.Now().UTC().Format(time.RFC3339),
	}
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for key := range rec {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		item := xmlItem{}
		for _, key := range keys {
			item.Fields = append(item.Fields, xmlField{
				XMLName: xml.Name{Local: sanitizeXMLName(key)},
				Value:   fmt.Sprintf("%v", rec[key]),
			})
		}
		doc.Items = append(doc.Items, item)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(xml.Header), data...), 0o644)
}
