package handlers

import (
	"github.com/rs/zerolog"

	"connectify-server/internal/domain/conversation"
	"connectify-server/internal/domain/delivery"
	"connectify-server/internal/domain/message"
	"connectify-server/internal/domain/presence"
	"connectify-server/internal/domain/user"
	"connectify-server/internal/infrastructure/auth"
	"connectify-server/internal/infrastructure/ws"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Auth         *AuthHandler
	User         *UserHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	WS           *WSHandler
}

// ProviderDeps carries everything the handlers need.
type ProviderDeps struct {
	Users         user.Service
	Conversations conversation.Service
	Messages      message.Service
	Tokens        *auth.TokenManager
	Hub           *ws.Hub
	Registry      presence.Registry
	Router        *delivery.Router
	CookieSecure  bool
	WSSkipVerify  bool
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(deps ProviderDeps, log zerolog.Logger) *Provider {
	return &Provider{
		Auth:         NewAuthHandler(deps.Users, deps.Tokens, deps.CookieSecure, log),
		User:         NewUserHandler(deps.Users, deps.Registry, log),
		Conversation: NewConversationHandler(deps.Conversations, log),
		Message:      NewMessageHandler(deps.Messages, log),
		WS:           NewWSHandler(deps.Hub, deps.Users, deps.Router, deps.WSSkipVerify, log),
	}
}
