package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	content := "Hello {{name}}, your order {{order_id}} is ready at {{ store }}"
	declared := []string{"name", "order_id", "store"}
	values := map[string]string{"name": "Alice", "order_id": "42", "store": "Main St"}

	assert.Equal(t, "Hello Alice, your order 42 is ready at Main St", RenderTemplate(content, declared, values))
}

func TestRenderTemplateDeclaredButMissing(t *testing.T) {
	content := "Hi {{name}}, see you at {{place}}"
	declared := []string{"name", "place"}
	values := map[string]string{"name": "Bob"}

	assert.Equal(t, "Hi Bob, see you at ", RenderTemplate(content, declared, values))
}

func TestRenderTemplateUnknownPlaceholderUntouched(t *testing.T) {
	content := "Hi {{name}}, code {{mystery}}"
	declared := []string{"name"}
	values := map[string]string{"name": "Eve"}

	assert.Equal(t, "Hi Eve, code {{mystery}}", RenderTemplate(content, declared, values))
}

func TestRenderTemplateValueWinsOverDeclaration(t *testing.T) {
	// A supplied value substitutes even when the name was never declared.
	content := "Promo: {{discount}}"
	assert.Equal(t, "Promo: 20%", RenderTemplate(content, nil, map[string]string{"discount": "20%"}))
}

func TestExtractTemplateVariables(t *testing.T) {
	content := "{{a}} and {{b}} then {{a}} again, plus {{ c }}"
	assert.Equal(t, []string{"a", "b", "c"}, ExtractTemplateVariables(content))
	assert.Nil(t, ExtractTemplateVariables("no placeholders here"))
}
