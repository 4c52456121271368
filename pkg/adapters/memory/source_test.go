package memory_test

import (
	"testing"

	"github.com/convoflow/convoflow/pkg/adapters/memory"
	"github.com/convoflow/convoflow/pkg/ports"
)

func TestMemorySource_Contract(t *testing.T) {
	fixtures := map[string]string{
		"sales":   "[Greeting]\nHello!",
		"support": "[Identity]\nYou are a support agent.",
	}
	ports.RunPromptSourceContract(t, memory.NewSource(fixtures), fixtures)
}
