package knowledge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) (*Builder, string) {
	t.Helper()
	root := t.TempDir()
	return &Builder{
		Dir:         filepath.Join(root, "knowledge_base"),
		DatasetPath: filepath.Join(root, "fine_tuning_dataset.jsonl"),
	}, root
}

func TestBuild_WritesCriteriaAndDataset(t *testing.T) {
	b, _ := newBuilder(t)
	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Records)
	assert.Equal(t, DefaultEOS, res.EOS)
	require.Len(t, res.Documents, 2)

	dep, err := os.ReadFile(filepath.Join(b.Dir, "depressao.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(dep), "\nCritérios Diagnósticos para Depressão Maior"))
	assert.Contains(t, string(dep), "6. Fadiga ou perda de energia.")

	anx, err := os.ReadFile(filepath.Join(b.Dir, "ansiedade.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(anx), "Transtorno de Ansiedade Generalizada (TAG)")

	f, err := os.Open(b.DatasetPath)
	require.NoError(t, err)
	defer f.Close()
	var texts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		assert.NotContains(t, sc.Text(), `\u00`, "non-ASCII must stay unescaped")
		var line map[string]string
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		require.Len(t, line, 1)
		texts = append(texts, line["text"])
	}
	require.NoError(t, sc.Err())
	require.Len(t, texts, 4)
	for _, text := range texts {
		assert.True(t, strings.HasPrefix(text, "[CONTEXTO]\n"))
		assert.Contains(t, text, "\n---\n[PERGUNTA]\n")
		assert.Contains(t, text, "[INSTRUÇÃO]\n")
		assert.True(t, strings.HasSuffix(text, "\n"+DefaultEOS))
	}
	assert.Contains(t, texts[2], string(dep), "third record carries the full depression criteria")
	assert.Contains(t, texts[3], "[PERGUNTA]\nbom dia\n")
}

func TestBuild_IsRepeatable(t *testing.T) {
	b, _ := newBuilder(t)
	_, err := b.Build(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(b.DatasetPath)
	require.NoError(t, err)

	// stale content is replaced, not appended to
	require.NoError(t, os.WriteFile(filepath.Join(b.Dir, "depressao.txt"), []byte("lixo"), 0o644))
	_, err = b.Build(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(b.DatasetPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))

	dep, err := os.ReadFile(filepath.Join(b.Dir, "depressao.txt"))
	require.NoError(t, err)
	assert.Equal(t, depressionCriteria, string(dep))
}

func TestBuild_UnwritableDirAborts(t *testing.T) {
	b, root := newBuilder(t)
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	b.Dir = filepath.Join(blocker, "kb")

	_, err := b.Build(context.Background())
	assert.Error(t, err)
	_, statErr := os.Stat(b.DatasetPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadEOS(t *testing.T) {
	tok, err := LoadEOS("")
	require.NoError(t, err)
	assert.Equal(t, "<|endoftext|>", tok)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "special_tokens_map.json"),
		[]byte(`{"bos_token": "<s>", "eos_token": {"content": "</s>", "lstrip": false}}`), 0o644))
	tok, err = LoadEOS(dir)
	require.NoError(t, err)
	assert.Equal(t, "</s>", tok)

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer_config.json"),
		[]byte(`{"eos_token": "<|im_end|>", "model_max_length": 1024}`), 0o644))
	tok, err = LoadEOS(dir)
	require.NoError(t, err)
	assert.Equal(t, "<|im_end|>", tok)

	_, err = LoadEOS(t.TempDir())
	assert.ErrorIs(t, err, ErrNoEOS)
}

func TestBuild_UsesTokenizerEOS(t *testing.T) {
	b, root := newBuilder(t)
	b.TokenizerDir = filepath.Join(root, "tok")
	require.NoError(t, os.MkdirAll(b.TokenizerDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(b.TokenizerDir, "special_tokens_map.json"),
		[]byte(`{"eos_token": "</s>"}`), 0o644))

	res, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "</s>", res.EOS)
	data, err := os.ReadFile(b.DatasetPath)
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(data), `</s>"}`))
}
