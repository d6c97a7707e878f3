package view

import (
	"strings"
	"testing"
	"testing/fstest"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/apk-notify/internal/pkg/apperrors"
)

func samplePayload() map[string]any {
	return map[string]any{"some_attribute": "hello"}
}

func TestView_NotFound(t *testing.T) {
	v := New("testdata/bad_file", nil)
	err := v.Parse()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrViewNotFound))

	err = New("testdata/bad_file", nil).Process()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrViewNotFound))
}

func TestView_DetectFrontmatter(t *testing.T) {
	v := New("testdata/sample_view.txt", nil)
	require.NoError(t, v.Parse())

	raw, ok := v.RawData()
	assert.True(t, ok)
	assert.Equal(t, "foo: bar", raw)
	assert.Equal(t, "somethings is good --- here but\n", v.RawContent())
}

func TestView_NoFrontmatter(t *testing.T) {
	v := New("testdata/no_frontmatter.txt", nil)
	require.NoError(t, v.Process())

	_, ok := v.RawData()
	assert.False(t, ok)
	assert.Nil(t, v.Data())
	assert.Equal(t, "This is normal test\nsomethings is good --- here but\n", v.Content())
}

func TestView_UnclosedFrontmatterIsContent(t *testing.T) {
	v := New("testdata/unclosed.txt", nil)
	require.NoError(t, v.Process())

	_, ok := v.RawData()
	assert.False(t, ok)
	assert.Nil(t, v.Data())
	assert.Equal(t, "---\nfoo: bar\nno closing delimiter\n", v.Content())
}

func TestView_ReadData(t *testing.T) {
	v := New("testdata/sample_view.txt", nil)
	require.NoError(t, v.Parse())
	require.NoError(t, v.RenderData())
	require.NoError(t, v.RenderContent())
	require.NoError(t, v.ReadData())

	require.NotNil(t, v.Data())
	assert.Equal(t, "bar", v.Data()["foo"])
	assert.Contains(t, v.Content(), "somethings is good --- here but")
	assert.NotContains(t, v.Content(), "foo: bar")

	got, ok := v.Context().Get("foo")
	assert.True(t, ok)
	assert.Equal(t, "bar", got)
}

func TestView_ReadDataKeepsReservedBindings(t *testing.T) {
	fsys := fstest.MapFS{
		"v.txt": {Data: []byte("---\npayload: подмена\nalert: other\nchannel: sms\nsubject: Тема\n---\n{{ .alert }} {{ .channel }} {{ .payload.name }} {{ .subject }}")},
	}
	rc := NewContext(map[string]any{"name": "anna"}).
		Set(BindingAlert, "deploy_done").
		Set(BindingChannel, "email")
	v := New("v.txt", rc, WithFS(fsys))
	require.NoError(t, v.Process())

	assert.Equal(t, "deploy_done email anna Тема", v.Content())
	assert.Equal(t, "подмена", v.Data()["payload"], "Data() хранит frontmatter как есть")

	got, _ := v.Context().Get(BindingAlert)
	assert.Equal(t, "deploy_done", got)
}

func TestContext_IsReserved(t *testing.T) {
	for _, k := range []string{BindingPayload, BindingChannel, BindingAlert, BindingRecipients, BindingContent} {
		assert.True(t, IsReserved(k), k)
	}
	assert.False(t, IsReserved("subject"))
}

func TestView_Process(t *testing.T) {
	rc := NewContext(samplePayload()).Set("some_value", 1)
	v := New("testdata/sample_view.txt.tmpl", rc, WithLayout("testdata/sample_layout.txt.tmpl"))
	require.NoError(t, v.Process())

	require.NotNil(t, v.Data())
	assert.Equal(t, "bar", v.Data()["foo"])
	assert.Equal(t, "hello", v.Data()["fuzz"])

	content := v.Content()
	assert.Contains(t, content, "This is normal test")
	assert.Contains(t, content, "This comes from hello")
	assert.Contains(t, content, "instance variable 1")
	assert.Contains(t, content, "fuzz is hello")
	assert.NotContains(t, content, "bar")
	assert.NotContains(t, content, "---")
}

func TestView_LayoutComposition(t *testing.T) {
	fsys := fstest.MapFS{
		"body.txt":       {Data: []byte("BODY")},
		"layout.txt":     {Data: []byte("Header\n{{ yield }}\nFooter")},
		"by_content.txt": {Data: []byte("Header [{{ .content }}] Footer")},
	}

	with := New("body.txt", nil, WithFS(fsys), WithLayout("layout.txt"))
	require.NoError(t, with.Process())
	content := with.Content()
	h, b, f := strings.Index(content, "Header"), strings.Index(content, "BODY"), strings.Index(content, "Footer")
	require.True(t, h >= 0 && b >= 0 && f >= 0, content)
	assert.True(t, h < b && b < f, "Header, BODY, Footer по порядку")

	viaContent := New("body.txt", nil, WithFS(fsys), WithLayout("by_content.txt"))
	require.NoError(t, viaContent.Process())
	assert.Equal(t, "Header [BODY] Footer", viaContent.Content())

	without := New("body.txt", nil, WithFS(fsys))
	require.NoError(t, without.Process())
	assert.Equal(t, "BODY", without.Content())
	assert.NotContains(t, without.Content(), "Header")
	assert.NotContains(t, without.Content(), "Footer")
}

func TestView_LayoutReadLazily(t *testing.T) {
	fsys := fstest.MapFS{"body.txt": {Data: []byte("BODY")}}
	v := New("body.txt", nil, WithFS(fsys), WithLayout("missing_layout.txt"))

	require.NoError(t, v.Parse())
	require.NoError(t, v.RenderData())
	require.NoError(t, v.RenderContent())
	assert.Equal(t, "BODY", v.Content())

	err := v.Process()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrViewNotFound))
}

func TestView_FrontmatterRoundTrip(t *testing.T) {
	fsys := fstest.MapFS{
		"view.txt": {Data: []byte("---\nfoo: \"bar\"\n---\nfoo={{ .foo }}")},
	}
	v := New("view.txt", nil, WithFS(fsys))
	require.NoError(t, v.Process())
	assert.Equal(t, "foo=bar", v.Content())
}

func TestView_MalformedFrontmatter(t *testing.T) {
	for _, path := range []string{"testdata/not_a_mapping.txt", "testdata/bad_yaml.txt"} {
		t.Run(path, func(t *testing.T) {
			err := New(path, nil).Process()
			assert.True(t, apperrors.HasCode(err, apperrors.ErrViewMalformedFrontmatter))
		})
	}
}

func TestView_TemplateErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"missing_key.txt": {Data: []byte("hi {{ .payload.nope }}")},
		"bad_syntax.txt":  {Data: []byte("hi {{ .payload")},
		"bad_data.txt":    {Data: []byte("---\nx: {{ .nope }}\n---\nbody")},
	}

	for _, name := range []string{"missing_key.txt", "bad_syntax.txt", "bad_data.txt"} {
		t.Run(name, func(t *testing.T) {
			err := New(name, NewContext(map[string]any{}), WithFS(fsys)).Process()
			assert.True(t, apperrors.HasCode(err, apperrors.ErrViewTemplateEval))
		})
	}
}

func TestView_StepOrder(t *testing.T) {
	v := New("testdata/sample_view.txt", nil)
	assert.True(t, apperrors.HasCode(v.RenderData(), apperrors.ErrViewTemplateEval))
	assert.True(t, apperrors.HasCode(v.RenderContent(), apperrors.ErrViewTemplateEval))

	require.NoError(t, v.Parse())
	assert.True(t, apperrors.HasCode(v.ReadData(), apperrors.ErrViewTemplateEval))
}

func TestView_Encoding(t *testing.T) {
	rc := NewContext(map[string]any{"name": "Мир"})
	v := New("testdata/cp1251.txt.tmpl", rc, WithEncoding("windows-1251"))
	require.NoError(t, v.Process())

	assert.Equal(t, "Тест", v.Data()["subject"])
	assert.Equal(t, "Привет, Мир\n", v.Content())

	err := New("testdata/cp1251.txt.tmpl", rc, WithEncoding("no-such-charset")).Process()
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestView_Funcs(t *testing.T) {
	fsys := fstest.MapFS{
		"f.txt": {Data: []byte(`{{ upper .payload.name }} {{ shout "x" }} {{ .payload.empty | default "n/a" }}`)},
	}
	rc := NewContext(map[string]any{"name": "anna", "empty": ""})
	v := New("f.txt", rc, WithFS(fsys), WithFuncs(template.FuncMap{
		"shout": func(s string) string { return s + "!" },
	}))
	require.NoError(t, v.Process())
	assert.Equal(t, "ANNA x! n/a", v.Content())
}

func TestContext(t *testing.T) {
	rc := NewContext("p")
	rc.Set(BindingAlert, "s1")
	rc.Merge(map[string]any{"a": 1, BindingAlert: "s2"})

	got, ok := rc.Get(BindingAlert)
	assert.True(t, ok)
	assert.Equal(t, "s2", got)

	b := rc.Bindings()
	b["a"] = 2
	v, _ := rc.Get("a")
	assert.Equal(t, 1, v, "Bindings возвращает копию")
	assert.Equal(t, "p", b[BindingPayload])
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name        string
		src         string
		wantData    string
		wantOK      bool
		wantContent string
	}{
		{"обычный", "---\na: 1\n---\nbody", "a: 1", true, "body"},
		{"CRLF", "---\r\na: 1\r\n---\r\nbody", "a: 1\r", true, "body"},
		{"пустой блок", "---\n---\nbody", "", true, "body"},
		{"закрытие в конце", "---\na: 1\n---", "a: 1", true, ""},
		{"без блока", "body\n---\n", "", false, "body\n---\n"},
		{"разделитель не в начале", " ---\na\n---\n", "", false, " ---\na\n---\n"},
		{"BOM", "\ufeff---\na: 1\n---\nbody", "a: 1", true, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok, content := splitFrontmatter(tt.src)
			assert.Equal(t, tt.wantData, data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}
