package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"
)

// epubExtractor walks the EPUB container: META-INF/container.xml names the
// OPF package, the package's spine gives reading order, and each spine item
// is an XHTML document whose tag-stripped text is concatenated.
type epubExtractor struct{}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest struct {
		Items []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		ItemRefs []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func (e *epubExtractor) Extract(ctx context.Context, data []byte) (Result, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: open epub: %v", ErrExtractionFailed, err)
	}

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[f.Name] = f
	}

	opfPath, err := locateOPF(files)
	if err != nil {
		return Result{}, err
	}

	var pkg epubPackage
	if err := readXML(files, opfPath, &pkg); err != nil {
		return Result{}, err
	}

	hrefByID := make(map[string]string, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		hrefByID[item.ID] = item.Href
	}

	opfDir := path.Dir(opfPath)
	var sections []string
	for _, ref := range pkg.Spine.ItemRefs {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		href, ok := hrefByID[ref.IDRef]
		if !ok {
			continue
		}
		name := href
		if opfDir != "." {
			name = path.Join(opfDir, href)
		}
		file, ok := files[name]
		if !ok {
			continue
		}
		raw, err := readZipFile(file)
		if err != nil {
			return Result{}, fmt.Errorf("%w: read %s: %v", ErrExtractionFailed, name, err)
		}
		if text := stripTags(raw); text != "" {
			sections = append(sections, text)
		}
	}

	return Result{Text: strings.ToValidUTF8(strings.Join(sections, "\n"), "")}, nil
}

func locateOPF(files map[string]*zip.File) (string, error) {
	var container epubContainer
	if err := readXML(files, "META-INF/container.xml", &container); err != nil {
		return "", err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return "", fmt.Errorf("%w: epub container names no rootfile", ErrExtractionFailed)
	}
	return container.Rootfiles[0].FullPath, nil
}

func readXML(files map[string]*zip.File, name string, target any) error {
	file, ok := files[name]
	if !ok {
		return fmt.Errorf("%w: epub is missing %s", ErrExtractionFailed, name)
	}
	raw, err := readZipFile(file)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrExtractionFailed, name, err)
	}
	if err := xml.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrExtractionFailed, name, err)
	}
	return nil
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// stripTags returns the character data of an XHTML document, skipping
// script and style bodies. The decoder runs in lenient mode because EPUB
// content is often HTML rather than strict XHTML.
func stripTags(raw []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	var b strings.Builder
	skipDepth := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			local := strings.ToLower(t.Name.Local)
			if local == "script" || local == "style" {
				skipDepth = 1
			}
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
			}
		case xml.CharData:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			if !utf8.ValidString(text) {
				text = strings.ToValidUTF8(text, "")
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
	return b.String()
}
