package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDescriber struct {
	calls        []string // instructions received, in order
	failBilingue bool
	err          error
	reply        string
}

func (f *fakeDescriber) Describe(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	f.calls = append(f.calls, instruction)
	if f.err != nil {
		return "", f.err
	}
	if f.failBilingue && len(f.calls) == 1 {
		return "", errors.New("secondary language model unavailable")
	}
	return f.reply, nil
}

func TestExtractTextPlainText(t *testing.T) {
	e := NewExtractor(&fakeDescriber{}, nil)
	got, err := e.ExtractText(context.Background(), File{Name: "notes.txt", Data: []byte("accords mets et vins")})
	require.NoError(t, err)
	assert.Equal(t, "accords mets et vins", got)
}

func TestExtractTextRejectsUnsupportedExtension(t *testing.T) {
	e := NewExtractor(&fakeDescriber{}, nil)
	_, err := e.ExtractText(context.Background(), File{Name: "virus.exe", Data: []byte{0x4D}})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestExtractImageBilingualFirst(t *testing.T) {
	d := &fakeDescriber{reply: "Château Test 2015"}
	e := NewExtractor(d, nil)

	got, err := e.ExtractText(context.Background(), File{Name: "etiquette.jpg", Data: []byte{0xFF}})
	require.NoError(t, err)
	assert.Equal(t, "Château Test 2015", got)
	require.Len(t, d.calls, 1)
	assert.Contains(t, d.calls[0], "anglais")
}

func TestExtractImageFallsBackToSingleLanguage(t *testing.T) {
	d := &fakeDescriber{reply: "Château Test", failBilingue: true}
	e := NewExtractor(d, nil)

	got, err := e.ExtractText(context.Background(), File{Name: "etiquette.png", Data: []byte{0x89}})
	require.NoError(t, err)
	assert.Equal(t, "Château Test", got)
	require.Len(t, d.calls, 2)
	assert.NotContains(t, d.calls[1], "anglais")
}

func TestExtractImageTotalFailure(t *testing.T) {
	d := &fakeDescriber{err: errors.New("vision service down")}
	e := NewExtractor(d, nil)

	_, err := e.ExtractText(context.Background(), File{Name: "etiquette.jpg", Data: []byte{0xFF}})
	require.Error(t, err)
	assert.Len(t, d.calls, 2)
}

// buildPDF assembles a minimal PDF with one page per text, computing the
// stream lengths and xref offsets so the fixture stays valid.
func buildPDF(pageTexts ...string) []byte {
	n := len(pageTexts)
	fontNum := 3 + 2*n

	var kids []string
	for i := 0; i < n; i++ {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i, text := range pageTexts {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontNum, 4+2*i))
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs)+1)
	for i, body := range objs {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(objs); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objs)+1, xref)
	return buf.Bytes()
}

func TestExtractTextPDFPagesInOrder(t *testing.T) {
	e := NewExtractor(&fakeDescriber{}, nil)
	data := buildPDF("Accords mets et vins", "Les vins de Savoie")

	got, err := e.ExtractText(context.Background(), File{Name: "guide.pdf", Data: data})
	require.NoError(t, err)

	first := strings.Index(got, "Accords mets et vins")
	second := strings.Index(got, "Les vins de Savoie")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestExtractTextMalformedPDF(t *testing.T) {
	e := NewExtractor(&fakeDescriber{}, nil)

	_, err := e.ExtractText(context.Background(), File{Name: "broken.pdf", Data: []byte("pas un pdf")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.pdf")
}

func TestDescribeLabelUsesConstrainedInstruction(t *testing.T) {
	d := &fakeDescriber{reply: "vin rouge, appellation X, 13%"}
	e := NewExtractor(d, nil)

	got, err := e.DescribeLabel(context.Background(), File{Name: "bouteille.jpeg", Data: []byte{0xFF}})
	require.NoError(t, err)
	assert.Equal(t, "vin rouge, appellation X, 13%", got)
	require.Len(t, d.calls, 1)
	assert.Equal(t, LabelInstruction, d.calls[0])
}

func TestDescribeLabelPropagatesFailure(t *testing.T) {
	d := &fakeDescriber{err: errors.New("timeout")}
	e := NewExtractor(d, nil)

	_, err := e.DescribeLabel(context.Background(), File{Name: "bouteille.jpg", Data: []byte{0xFF}})
	assert.Error(t, err)
}

func TestDescribeLabelRejectsNonImage(t *testing.T) {
	e := NewExtractor(&fakeDescriber{}, nil)
	_, err := e.DescribeLabel(context.Background(), File{Name: "notes.txt", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestFileTypeHelpers(t *testing.T) {
	assert.True(t, File{Name: "a.JPG"}.IsImage())
	assert.True(t, File{Name: "a.png"}.IsImage())
	assert.False(t, File{Name: "a.pdf"}.IsImage())

	assert.Equal(t, "image/jpeg", File{Name: "a.jpeg"}.MIMEType())
	assert.Equal(t, "image/png", File{Name: "a.png"}.MIMEType())
	assert.Equal(t, "application/pdf", File{Name: "a.pdf"}.MIMEType())
}
