package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestExtractBytes_plainText(t *testing.T) {
	tests := []struct {
		name    string
		content string
		ext     string
		want    string
	}{
		{"txt", "Restart the Webex app\nthen sign in", ".txt", "Restart the Webex app\nthen sign in"},
		{"utf8", "caf\xc3\xa9", ".md", "café"},
		{"invalid_utf8", "cucm\x80upgrade", ".rst", "cucm�upgrade"},
		{"bom_and_crlf", "\xEF\xBB\xBFline one\r\nline two", ".txt", "line one\nline two"},
		{"front_matter", "---\ntitle: Reset password\ntags: [webex]\n---\n\n# Reset\nOpen settings", ".md", "# Reset\nOpen settings"},
		{"front_matter_only_for_md", "---\nkey: v\n---\nbody", ".txt", "---\nkey: v\n---\nbody"},
		{"unterminated_front_matter", "---\nno end", ".md", "---\nno end"},
		{"unknown_extension", "raw content", ".xyz", "raw content"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes([]byte(tt.content), tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.txt")
	if err := os.WriteFile(path, []byte("Jabber login fails after upgrade"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Jabber login fails after upgrade" {
		t.Errorf("got %q", got)
	}
	if _, err := NewExtractor().Extract(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

// docxArchive builds a .docx with the body at docPath. When contentTypes is
// non-empty it is written as [Content_Types].xml.
func docxArchive(t *testing.T, docPath, contentTypes, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if contentTypes != "" {
		ct, err := w.Create("[Content_Types].xml")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = ct.Write([]byte(contentTypes))
	}
	fw, err := w.Create(docPath)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const mainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

func TestExtractBytes_docx(t *testing.T) {
	tests := []struct {
		name         string
		docPath      string
		contentTypes string
		body         string
		want         string
	}{
		{
			name:    "default_part",
			docPath: "word/document.xml",
			body:    `<w:p><w:r><w:t>Check the SIP trunk status</w:t></w:r></w:p>`,
			want:    "Check the SIP trunk status",
		},
		{
			name:         "override_part",
			docPath:      "word/document2.xml",
			contentTypes: `<Types><Override PartName="/word/document2.xml" ContentType="` + mainContentType + `"/></Types>`,
			body:         `<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`,
			want:         "Content from document2",
		},
		{
			name:         "override_attributes_reversed",
			docPath:      "word/document3.xml",
			contentTypes: `<Types><Override ContentType="` + mainContentType + `" PartName="/word/document3.xml"/></Types>`,
			body:         `<w:p><w:r><w:t>Reversed order</w:t></w:r></w:p>`,
			want:         "Reversed order",
		},
		{
			name:    "attributed_paragraphs",
			docPath: "word/document.xml",
			body:    `<w:p w:rsidR="00A1"><w:r><w:t>Step one</w:t></w:r></w:p><w:p w:rsidR="00A2"><w:r><w:t xml:space="preserve">Step two</w:t></w:r></w:p>`,
			want:    "Step one\nStep two",
		},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(docxArchive(t, tt.docPath, tt.contentTypes, tt.body), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractBytes_docxErrors(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractBytes([]byte("plain bytes"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/styles.xml")
	_, _ = fw.Write([]byte("<w:styles/>"))
	_ = w.Close()
	if _, err := e.ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error when the main part is missing")
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestStripRunningLines(t *testing.T) {
	pages := []string{
		"Webex Admin Guide\nEnable single sign-on in Control Hub.\nCisco Systems, Inc.",
		"Webex Admin Guide\nUpload the IdP metadata file.\nCisco Systems, Inc.",
		"Webex Admin Guide\nTest the SSO connection before enabling it.\nCisco Systems, Inc.",
	}
	want := []string{
		"Enable single sign-on in Control Hub.",
		"Upload the IdP metadata file.",
		"Test the SSO connection before enabling it.",
	}
	if got := stripRunningLines(pages); !reflect.DeepEqual(got, want) {
		t.Errorf("stripRunningLines = %q, want %q", got, want)
	}
}

func TestStripRunningLines_keepsBodyRepeatsAndShortDocs(t *testing.T) {
	short := []string{"Header\nbody one", "Header\nbody two"}
	if got := stripRunningLines(short); !reflect.DeepEqual(got, short) {
		t.Errorf("documents under three pages must be untouched, got %q", got)
	}

	pages := []string{
		"Intro\nRestart the service.\nPage 1",
		"Setup\nRestart the service.\nPage 2",
		"Verify\nRestart the service.\nPage 3",
	}
	got := stripRunningLines(pages)
	for i, p := range got {
		if p != pages[i] {
			t.Errorf("page %d changed to %q; repeated body lines are not running lines", i, p)
		}
	}
}

func TestSupported(t *testing.T) {
	for _, want := range []string{".pdf", ".docx", ".odt", ".rtf", ".md"} {
		found := false
		for _, ext := range Supported() {
			if ext == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Supported() = %v, missing %s", Supported(), want)
		}
	}
}

func TestExtract_maxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewExtractor(WithMaxBytes(4)).Extract(path); err == nil {
		t.Error("expected error for file over the limit")
	}
	if _, err := NewExtractor(WithMaxBytes(0)).Extract(path); err != nil {
		t.Errorf("non-positive limit should keep the default: %v", err)
	}
}
