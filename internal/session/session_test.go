package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const persona = "Tu es Goût-gle, un expert gastronomique."

func TestNewSeedsPersonaTurn(t *testing.T) {
	s := New(persona)
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, persona, msgs[0].Content)
}

func TestAppendOrder(t *testing.T) {
	s := New(persona)
	s.AppendUser("Quel vin avec une raclette ?")
	s.AppendAssistant("Un vin blanc de Savoie.")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
}

func TestResetRestoresSinglePersonaMessage(t *testing.T) {
	s := New(persona)
	for i := 0; i < 10; i++ {
		s.AppendUser("question")
		s.AppendAssistant("réponse")
	}
	require.Equal(t, 21, s.Len())

	s.Reset()
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, persona, msgs[0].Content)
}

func TestTruncateKeepsPersona(t *testing.T) {
	s := New(persona)
	s.AppendUser("a")
	s.AppendAssistant("b")

	s.Truncate(1)
	require.Equal(t, 1, s.Len())

	s.Truncate(0)
	assert.Equal(t, 1, s.Len())
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New(persona)
	msgs := s.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, persona, s.Messages()[0].Content)
}

func TestAppendUserParts(t *testing.T) {
	s := New(persona)
	s.AppendUserParts([]ContentPart{
		{Type: "text", Text: "Quel est ce vin ?"},
		{Type: "image_url", ImageURL: "data:image/png;base64,AAAA"},
	})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	require.Len(t, msgs[1].Parts, 2)
	assert.Equal(t, "image_url", msgs[1].Parts[1].Type)
}
