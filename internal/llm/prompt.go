// ABOUTME: Prompt construction for grounded question answering
// ABOUTME: Builds system, history and context-bearing user messages for chat completion
package llm

import (
	"fmt"

	"github.com/harper/docqa/internal/models"
	openai "github.com/sashabaranov/go-openai"
)

// SystemPrompt instructs the model to answer only from retrieved context
const SystemPrompt = `You are a helpful medical policy assistant. Answer questions based ONLY on the provided context.
If the answer is not in the context, say "I don't have enough information to answer this question."
Be concise and professional. Cite the source when possible.`

// UserPrompt renders the retrieved context and the question into the final user message
func UserPrompt(question, contextText string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", contextText, question)
}

// BuildMessages orders the system instruction, prior turns and the new question
func BuildMessages(question, contextText string, history []models.ConversationTurn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})

	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: UserPrompt(question, contextText),
	})
}
