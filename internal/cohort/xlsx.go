package cohort

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxRichText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (rt xlsxRichText) String() string {
	if len(rt.Runs) == 0 {
		return rt.T
	}
	var sb strings.Builder
	for _, r := range rt.Runs {
		sb.WriteString(r.T)
	}
	return sb.String()
}

type xlsxShared struct {
	Items []xlsxRichText `xml:"si"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []struct {
			Ref    string       `xml:"r,attr"`
			Type   string       `xml:"t,attr"`
			Value  string       `xml:"v"`
			Inline xlsxRichText `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

// xlsxSource serves the rows of one worksheet, decoded up front.
type xlsxSource struct {
	zr   *zip.ReadCloser
	rows [][]string
	next int
}

func openXLSX(p, sheetName string) (*xlsxSource, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	src := &xlsxSource{zr: zr}
	if err := src.load(sheetName); err != nil {
		zr.Close()
		return nil, err
	}
	return src, nil
}

func (s *xlsxSource) load(sheetName string) error {
	var wb xlsxWorkbook
	if err := s.decode("xl/workbook.xml", &wb); err != nil {
		return err
	}
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("xlsx: workbook has no sheets")
	}
	var rels xlsxRels
	if err := s.decode("xl/_rels/workbook.xml.rels", &rels); err != nil {
		return err
	}
	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		targets[r.ID] = r.Target
	}

	pick := -1
	if sheetName == "" {
		pick = 0
	} else {
		names := make([]string, len(wb.Sheets))
		for i, sh := range wb.Sheets {
			names[i] = sh.Name
			if strings.EqualFold(sh.Name, sheetName) && pick < 0 {
				pick = i
			}
		}
		if pick < 0 {
			return fmt.Errorf("xlsx: sheet %q not found (available: %s)", sheetName, strings.Join(names, ", "))
		}
	}
	target, ok := targets[wb.Sheets[pick].RID]
	if !ok {
		target = fmt.Sprintf("worksheets/sheet%d.xml", pick+1)
	}

	var shared xlsxShared
	if s.file("xl/sharedStrings.xml") != nil {
		if err := s.decode("xl/sharedStrings.xml", &shared); err != nil {
			return err
		}
	}
	var sheet xlsxSheet
	if err := s.decode(sheetPath(target), &sheet); err != nil {
		return err
	}
	s.rows = make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		var out []string
		for k, c := range row.Cells {
			col := k
			if c.Ref != "" {
				col = columnIndex(c.Ref)
			}
			if col < 0 {
				continue
			}
			for len(out) <= col {
				out = append(out, "")
			}
			switch c.Type {
			case "s":
				i, err := strconv.Atoi(strings.TrimSpace(c.Value))
				if err == nil && i >= 0 && i < len(shared.Items) {
					out[col] = shared.Items[i].String()
				}
			case "inlineStr":
				out[col] = c.Inline.String()
			default:
				out[col] = c.Value
			}
		}
		s.rows = append(s.rows, out)
	}
	return nil
}

func (s *xlsxSource) file(name string) *zip.File {
	for _, f := range s.zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (s *xlsxSource) decode(name string, v any) error {
	f := s.file(name)
	if f == nil {
		return fmt.Errorf("xlsx: %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("xlsx: open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("xlsx: parse %s: %w", name, err)
	}
	return nil
}

func (s *xlsxSource) Next() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	return row, nil
}

func (s *xlsxSource) Close() error { return s.zr.Close() }

// sheetPath resolves a workbook relationship target to a zip entry name.
// Targets are relative to xl/ unless they start with a slash.
func sheetPath(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	if strings.HasPrefix(target, "xl/") {
		return target
	}
	return path.Join("xl", target)
}

// columnIndex converts a cell reference such as "AB12" to a 0-based column.
func columnIndex(ref string) int {
	idx := 0
	n := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return idx - 1
}
