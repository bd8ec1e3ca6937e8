package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ggufchat/internal/persona"
	"ggufchat/pkg/types"
)

func TestAssemble_SingleUserMessage(t *testing.T) {
	got := Assemble([]types.Message{{Role: types.RoleUser, Content: "Hi"}}, false, "")
	require.Equal(t, "User: Hi\n\nAssistant: ", got)
}

func TestAssemble_EmptyConversation(t *testing.T) {
	require.Equal(t, "Assistant: ", Assemble(nil, false, "pirate"))
}

func TestAssemble_PreservesOrder(t *testing.T) {
	msgs := []types.Message{
		{Role: types.RoleUser, Content: "one"},
		{Role: types.RoleAssistant, Content: "two"},
		{Role: types.RoleUser, Content: "three"},
	}
	want := "User: one\n\nAssistant: two\n\nUser: three\n\nAssistant: "
	require.Equal(t, want, Assemble(msgs, false, ""))
}

func TestAssemble_SkipsUnknownRoles(t *testing.T) {
	msgs := []types.Message{{Role: "system", Content: "x"}, {Role: types.RoleUser, Content: "y"}}
	require.Equal(t, "User: y\n\nAssistant: ", Assemble(msgs, false, ""))
}

func TestAssemble_RoleplayDisabledHasNoInstructions(t *testing.T) {
	msgs := []types.Message{{Role: types.RoleUser, Content: "Ahoy"}}
	for _, p := range persona.All() {
		got := Assemble(msgs, false, p.ID)
		require.NotContains(t, got, p.Instructions)
	}
}

func TestAssemble_RoleplayPrependsPersona(t *testing.T) {
	msgs := []types.Message{{Role: types.RoleUser, Content: "Ahoy"}}
	got := Assemble(msgs, true, "pirate")
	instr := persona.Instructions("pirate")
	require.True(t, strings.HasPrefix(got, instr+"\n\n"))
	require.Equal(t, instr+"\n\nUser: Ahoy\n\nAssistant: ", got)
}

func TestAssemble_RoleplayWithoutPersona(t *testing.T) {
	got := Assemble([]types.Message{{Role: types.RoleUser, Content: "Hi"}}, true, "")
	require.Equal(t, "User: Hi\n\nAssistant: ", got)
}

func TestAssemble_Idempotent(t *testing.T) {
	msgs := []types.Message{{Role: types.RoleUser, Content: "Hi"}, {Role: types.RoleAssistant, Content: "Hello"}}
	a := Assemble(msgs, true, "detective")
	b := Assemble(msgs, true, "detective")
	require.Equal(t, a, b)
	require.Len(t, msgs, 2)
}
