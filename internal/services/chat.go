package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ragchat-backend/internal/chat"
	"github.com/yungbote/ragchat-backend/internal/clients/mem0"
	"github.com/yungbote/ragchat-backend/internal/clients/openai"
	"github.com/yungbote/ragchat-backend/internal/logger"
	"github.com/yungbote/ragchat-backend/internal/repos"
	"github.com/yungbote/ragchat-backend/internal/types"
)

const memoryWriteTimeout = 30 * time.Second

// TurnMessage is one entry of the client-supplied conversation window.
type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnResult is the outcome of one chat turn. FilesProcessing marks a wait
// turn: the assistant message is ephemeral and nothing was persisted.
type TurnResult struct {
	Message         *types.Message
	ChatID          uuid.UUID
	FilesProcessing bool
}

type ChatService interface {
	Respond(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID, messages []TurnMessage, fileIDs []uuid.UUID) (*TurnResult, error)
	CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error)
	GetChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) (*types.Chat, error)
	ListMessages(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) ([]*types.Message, error)
	RenameChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID, title string) (*types.Chat, error)
	DeleteChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) error
}

type chatService struct {
	db       *gorm.DB
	log      *logger.Logger
	chatRepo repos.ChatRepo
	msgRepo  repos.MessageRepo
	fileRepo repos.FileRepo
	ai       openai.Client
	memory   mem0.Client
	docIndex DocumentIndexService
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	chatRepo repos.ChatRepo,
	msgRepo repos.MessageRepo,
	fileRepo repos.FileRepo,
	ai openai.Client,
	memory mem0.Client,
	docIndex DocumentIndexService,
) ChatService {
	return &chatService{
		db:       db,
		log:      log.With("service", "ChatService"),
		chatRepo: chatRepo,
		msgRepo:  msgRepo,
		fileRepo: fileRepo,
		ai:       ai,
		memory:   memory,
		docIndex: docIndex,
	}
}

func (cs *chatService) Respond(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID, messages []TurnMessage, fileIDs []uuid.UUID) (*TurnResult, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: messages required", ErrInvalidInput)
	}
	query := strings.TrimSpace(messages[len(messages)-1].Content)
	if query == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidInput)
	}

	currentChat, err := cs.resolveChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	memoryText := cs.searchMemory(ctx, query)

	documentContext, filesContext, waitResult, err := cs.buildFileContext(ctx, userID, currentChat.ID, query, fileIDs)
	if err != nil {
		return nil, err
	}
	if waitResult != nil {
		return waitResult, nil
	}

	prompt := buildPrompt(memoryText, documentContext, filesContext, query)

	answer, err := cs.ai.GenerateText(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	cs.writeMemoryAsync(query, answer)

	assistantMsg, err := cs.persistTurn(ctx, currentChat, query, answer)
	if err != nil {
		return nil, err
	}

	return &TurnResult{Message: assistantMsg, ChatID: currentChat.ID}, nil
}

func (cs *chatService) resolveChat(ctx context.Context, userID uuid.UUID, chatID *uuid.UUID) (*types.Chat, error) {
	if chatID == nil {
		created, err := cs.chatRepo.Create(ctx, nil, []*types.Chat{{UserID: userID, Title: chat.DefaultTitle}})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat: %w", err)
		}
		return created[0], nil
	}
	found, err := cs.chatRepo.GetByID(ctx, nil, *chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	if found == nil {
		return nil, fmt.Errorf("%w: chat", ErrNotFound)
	}
	return found, nil
}

// searchMemory never fails the turn: a broken memory service degrades to an
// answer without long-term context.
func (cs *chatService) searchMemory(ctx context.Context, query string) string {
	entries, err := cs.memory.Search(ctx, query)
	if err != nil {
		cs.log.Warn("memory search failed, continuing without memory context", "error", err.Error())
		return ""
	}
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Memory) != "" {
			parts = append(parts, e.Memory)
		}
	}
	return strings.Join(parts, "\n")
}

func isPendingStatus(status string) bool {
	return status == types.FileStatusUploading || status == types.FileStatusProcessing
}

func (cs *chatService) buildFileContext(ctx context.Context, userID uuid.UUID, chatID uuid.UUID, query string, fileIDs []uuid.UUID) (string, string, *TurnResult, error) {
	if len(fileIDs) > 0 {
		files, err := cs.fileRepo.GetByIDs(ctx, nil, fileIDs, userID)
		if err != nil {
			return "", "", nil, fmt.Errorf("failed to load files: %w", err)
		}

		var pendingNames []string
		for _, f := range files {
			if isPendingStatus(f.Status) {
				pendingNames = append(pendingNames, f.FileName)
			}
		}
		if len(pendingNames) > 0 {
			wait := &TurnResult{
				Message: &types.Message{
					ID:     uuid.New(),
					ChatID: chatID,
					Role:   types.MessageRoleAssistant,
					Content: fmt.Sprintf(
						"Please wait, the following files are still being processed: %s. Please try again in a moment.",
						strings.Join(pendingNames, ", "),
					),
					CreatedAt: time.Now().UTC(),
				},
				ChatID:          chatID,
				FilesProcessing: true,
			}
			return "", "", wait, nil
		}

		documentContext := cs.retrieveDocuments(ctx, userID, query, fileIDs)

		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.FileName)
		}
		filesContext := ""
		if len(names) > 0 {
			filesContext = "\n\nFiles available in this conversation: " + strings.Join(names, ", ")
		}
		return documentContext, filesContext, nil, nil
	}

	chatFiles, err := cs.fileRepo.ListByChatID(ctx, nil, chatID, userID)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to load chat files: %w", err)
	}
	if len(chatFiles) == 0 {
		return "", "", nil, nil
	}

	var completedIDs []uuid.UUID
	for _, f := range chatFiles {
		if f.Status == types.FileStatusCompleted {
			completedIDs = append(completedIDs, f.ID)
		}
	}

	documentContext := ""
	if len(completedIDs) > 0 {
		documentContext = cs.retrieveDocuments(ctx, userID, query, completedIDs)
	}

	labels := make([]string, 0, len(chatFiles))
	for _, f := range chatFiles {
		labels = append(labels, fmt.Sprintf("%s (%s)", f.FileName, f.Status))
	}
	filesContext := "\n\nFiles in this conversation: " + strings.Join(labels, ", ")
	return documentContext, filesContext, nil, nil
}

func (cs *chatService) retrieveDocuments(ctx context.Context, userID uuid.UUID, query string, fileIDs []uuid.UUID) string {
	matches, err := cs.docIndex.QueryDocuments(ctx, userID, query, fileIDs)
	if err != nil {
		cs.log.Warn("document retrieval failed, continuing without document context", "error", err.Error())
		return ""
	}
	if len(matches) == 0 {
		return ""
	}
	parts := make([]string, 0, len(matches))
	for i, m := range matches {
		parts = append(parts, fmt.Sprintf("[Document %d]: %s", i+1, m.Text))
	}
	return "\n\nRelevant document context:\n" + strings.Join(parts, "\n\n")
}

func buildPrompt(memoryText, documentContext, filesContext, query string) string {
	var sb strings.Builder
	if memoryText != "" {
		sb.WriteString("Relevant past memories:\n")
		sb.WriteString(memoryText)
		sb.WriteString("\n")
	}
	sb.WriteString(documentContext)
	sb.WriteString(filesContext)
	sb.WriteString("\n\nUser query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Use the provided document context to answer the user's query when relevant\n")
	sb.WriteString("- Reference specific information from the documents when applicable\n")
	sb.WriteString("- If the query is about the uploaded files, use the extracted content to provide accurate answers\n")
	sb.WriteString("- Maintain context from previous memories when relevant\n")
	sb.WriteString("- Be helpful and conversational while staying accurate to the provided information")
	return strings.TrimSpace(sb.String())
}

// writeMemoryAsync records the exchange in long-term memory without blocking
// or failing the response.
func (cs *chatService) writeMemoryAsync(query, answer string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), memoryWriteTimeout)
		defer cancel()
		err := cs.memory.Add(ctx, []mem0.MemoryMessage{
			{Role: types.MessageRoleUser, Content: query},
			{Role: types.MessageRoleAssistant, Content: answer},
		})
		if err != nil {
			cs.log.Warn("memory write failed", "error", err.Error())
		}
	}()
}

func (cs *chatService) persistTurn(ctx context.Context, currentChat *types.Chat, query, answer string) (*types.Message, error) {
	var assistantMsg *types.Message

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := cs.msgRepo.CountByChatID(ctx, tx, currentChat.ID)
		if err != nil {
			return fmt.Errorf("failed to count messages: %w", err)
		}

		userMsg := &types.Message{ChatID: currentChat.ID, Role: types.MessageRoleUser, Content: query}
		if _, err := cs.msgRepo.Create(ctx, tx, []*types.Message{userMsg}); err != nil {
			return fmt.Errorf("failed to persist user message: %w", err)
		}

		created := &types.Message{ChatID: currentChat.ID, Role: types.MessageRoleAssistant, Content: answer}
		msgs, err := cs.msgRepo.Create(ctx, tx, []*types.Message{created})
		if err != nil {
			return fmt.Errorf("failed to persist assistant message: %w", err)
		}
		assistantMsg = msgs[0]

		if count == 0 {
			title := chat.GenerateChatTitle(query)
			if _, err := cs.chatRepo.UpdateTitle(ctx, tx, currentChat.ID, currentChat.UserID, title); err != nil {
				return fmt.Errorf("failed to set chat title: %w", err)
			}
			return nil
		}
		return cs.chatRepo.TouchUpdatedAt(ctx, tx, currentChat.ID)
	})
	if err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// -------------------- chat CRUD --------------------

func (cs *chatService) CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error) {
	cleaned := chat.DefaultTitle
	if strings.TrimSpace(title) != "" {
		valid, ok := chat.ValidateChatTitle(title)
		if !ok {
			return nil, fmt.Errorf("%w: invalid title", ErrInvalidInput)
		}
		cleaned = valid
	}
	created, err := cs.chatRepo.Create(ctx, nil, []*types.Chat{{UserID: userID, Title: cleaned}})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return created[0], nil
}

func (cs *chatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error) {
	return cs.chatRepo.ListByUserID(ctx, nil, userID)
}

func (cs *chatService) GetChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) (*types.Chat, error) {
	found, err := cs.chatRepo.GetByID(ctx, nil, chatID, userID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: chat", ErrNotFound)
	}
	return found, nil
}

func (cs *chatService) ListMessages(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) ([]*types.Message, error) {
	found, err := cs.chatRepo.GetByID(ctx, nil, chatID, userID)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: chat", ErrNotFound)
	}
	return cs.msgRepo.ListByChatID(ctx, nil, chatID)
}

func (cs *chatService) RenameChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID, title string) (*types.Chat, error) {
	cleaned, ok := chat.ValidateChatTitle(title)
	if !ok {
		return nil, fmt.Errorf("%w: invalid title", ErrInvalidInput)
	}
	updated, err := cs.chatRepo.UpdateTitle(ctx, nil, chatID, userID, cleaned)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: chat", ErrNotFound)
	}
	return updated, nil
}

func (cs *chatService) DeleteChat(ctx context.Context, userID uuid.UUID, chatID uuid.UUID) error {
	deleted, err := cs.chatRepo.Delete(ctx, nil, chatID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: chat", ErrNotFound)
	}
	return nil
}
