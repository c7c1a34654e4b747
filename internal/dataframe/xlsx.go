package dataframe

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadXLSX reads one worksheet of an .xlsx workbook into a DataFrame. The first row is the
// header. If sheetName is empty the sheet is picked by 1-based sheetIndex (default 1).
func LoadXLSX(p string, opt LoadOptions, sheetName string, sheetIndex int) (*DataFrame, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var wb workbook
	if err := decodeZipXML(files, "xl/workbook.xml", &wb); err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	var rels relationships
	if err := decodeZipXML(files, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, fmt.Errorf("read workbook relationships: %w", err)
	}
	var sst sharedStrings
	if _, ok := files["xl/sharedStrings.xml"]; ok {
		if err := decodeZipXML(files, "xl/sharedStrings.xml", &sst); err != nil {
			return nil, fmt.Errorf("read shared strings: %w", err)
		}
	}

	target, err := resolveSheet(wb, rels, sheetName, sheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%w in workbook '%s'", err, filepath.Base(p))
	}
	var ws worksheet
	if err := decodeZipXML(files, target, &ws); err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	rows := ws.records(sst.values())
	if len(rows) == 0 {
		return New(filepath.Base(p), 0), nil
	}
	body := rows[1:]
	if opt.MaxRows > 0 && len(body) > opt.MaxRows {
		body = body[:opt.MaxRows]
	}
	return build(filepath.Base(p), rows[0], body, opt)
}

type workbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type sharedStrings struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func (s sharedStrings) values() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		if it.T != "" || len(it.Runs) == 0 {
			out[i] = it.T
			continue
		}
		var b strings.Builder
		for _, r := range it.Runs {
			b.WriteString(r.T)
		}
		out[i] = b.String()
	}
	return out
}

type worksheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string `xml:"r,attr"`
			Type   string `xml:"t,attr"`
			Value  string `xml:"v"`
			Inline string `xml:"is>t"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// records flattens the sheet into string rows, placing each cell by its column reference.
func (ws worksheet) records(shared []string) [][]string {
	out := make([][]string, 0, len(ws.Rows))
	for _, row := range ws.Rows {
		var rec []string
		for i, c := range row.Cells {
			col := i
			if c.Ref != "" {
				col = columnIndex(c.Ref)
			}
			if col < 0 {
				continue
			}
			for len(rec) <= col {
				rec = append(rec, "")
			}
			switch c.Type {
			case "s":
				idx, err := strconv.Atoi(c.Value)
				if err == nil && idx >= 0 && idx < len(shared) {
					rec[col] = shared[idx]
				}
			case "inlineStr":
				rec[col] = c.Inline
			default:
				rec[col] = c.Value
			}
		}
		out = append(out, rec)
	}
	return out
}

func resolveSheet(wb workbook, rels relationships, name string, index int) (string, error) {
	targets := map[string]string{}
	for _, r := range rels.Items {
		targets[r.ID] = r.Target
	}
	if name != "" {
		available := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, name) {
				if t, ok := targets[s.RID]; ok {
					return sheetPath(t), nil
				}
			}
			available = append(available, s.Name)
		}
		return "", fmt.Errorf("sheet '%s' not found (available: %s)", name, strings.Join(available, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range wb.Sheets {
		if s.SheetID == index {
			if t, ok := targets[s.RID]; ok {
				return sheetPath(t), nil
			}
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

// sheetPath maps a relationship target ("worksheets/sheet1.xml" or "/xl/worksheets/sheet1.xml")
// to its zip entry name.
func sheetPath(target string) string {
	target = strings.TrimPrefix(target, "/")
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

// columnIndex converts a cell reference like "C12" to a 0-based column index.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}

func decodeZipXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%s: missing from archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
