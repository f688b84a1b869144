package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goutgle/internal/session"
	"goutgle/internal/telemetry"
)

func messages(texts ...string) []session.Message {
	var msgs []session.Message
	for i, t := range texts {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		msgs = append(msgs, session.Message{Role: role, Content: t})
	}
	return msgs
}

func TestGenerateKeyIsStable(t *testing.T) {
	a := GenerateKey(messages("quel vin ?", "un blanc"))
	b := GenerateKey(messages("quel vin ?", "un blanc"))
	assert.Equal(t, a, b)
}

func TestGenerateKeyDistinguishesContent(t *testing.T) {
	a := GenerateKey(messages("quel vin ?"))
	b := GenerateKey(messages("quel fromage ?"))
	assert.NotEqual(t, a, b)
}

func TestGenerateKeyIncludesParts(t *testing.T) {
	plain := GenerateKey([]session.Message{{Role: session.RoleUser, Content: "x"}})
	multi := GenerateKey([]session.Message{{
		Role:  session.RoleUser,
		Parts: []session.ContentPart{{Type: "text", Text: "x"}, {Type: "image_url", ImageURL: "data:..."}},
	}})
	assert.NotEqual(t, plain, multi)
}

func TestMemoryTier(t *testing.T) {
	s := New(nil, nil)
	key := GenerateKey(messages("quel vin ?"))

	_, ok := s.Get(key)
	assert.False(t, ok)

	s.Put(key, "un blanc de Savoie")
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "un blanc de Savoie", got)
}

func TestSQLiteTierSurvivesMemoryLoss(t *testing.T) {
	db, err := telemetry.InitDB(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer db.Close()

	key := GenerateKey(messages("quel vin ?"))
	first := New(db, nil)
	first.Put(key, "un rouge léger")

	// a fresh Store over the same database sees the persisted entry
	second := New(db, nil)
	got, ok := second.Get(key)
	require.True(t, ok)
	assert.Equal(t, "un rouge léger", got)
}
