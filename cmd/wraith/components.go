package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/apperr"
	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/conversation"
	"github.com/hyperjump/wraith/internal/extract"
	"github.com/hyperjump/wraith/internal/indexer"
	"github.com/hyperjump/wraith/internal/intent"
	"github.com/hyperjump/wraith/internal/llm"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/retrieval"
	"github.com/hyperjump/wraith/internal/session"
)

// Components holds everything a command needs. Sessions and Orchestrator are
// nil unless conversation support was requested.
type Components struct {
	Retrieval    *retrieval.Stack
	Indexer      *indexer.Indexer
	Sessions     session.Store
	Orchestrator *conversation.Orchestrator
}

// Close releases the session store and the retrieval stack.
func (c *Components) Close() {
	if c.Sessions != nil {
		_ = c.Sessions.Close()
	}
	if c.Retrieval != nil {
		_ = c.Retrieval.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withConversation bool) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	stack, err := retrieval.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c := &Components{Retrieval: stack}
	c.Indexer = indexer.New(stack.Store, stack.Embedder, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap,
		indexer.WithExtractor(extract.NewExtractor(extract.WithMaxBytes(int64(cfg.Ingest.MaxFileMB)<<20))),
		indexer.WithStoreTimeout(cfg.Timeouts.Store),
		indexer.WithLogger(logger.Named("indexer")),
	)
	if !withConversation {
		return c, nil
	}

	sessions, err := session.Open(ctx, cfg.Session, logger.Named("session"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	c.Sessions = sessions

	client, err := llm.NewChatClient(cfg.Generator)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create chat client: %w", err)
	}
	gen := llm.NewPromptGenerator(client, cfg.Timeouts.Generator, logger.Named("llm"))

	c.Orchestrator = conversation.New(conversation.Deps{
		Store:      sessions,
		Locker:     session.NewKeyLocker(sessions, cfg.Session.LockTTL, logger.Named("session")),
		Retriever:  stack.Runtime,
		Generator:  gen,
		Classifier: intent.NewClassifier(cfg.Intent.Keywords),
	}, conversation.Options{
		Policy:       conversation.PolicyFromConfig(cfg.Conversation),
		StoreTimeout: cfg.Timeouts.Store,
	}, logger.Named("conversation"))
	return c, nil
}

// turnResponse shapes an in-process turn like the HTTP reply.
func turnResponse(sessionID, reply string, err error) *models.TurnResponse {
	resp := &models.TurnResponse{SessionID: sessionID, Reply: reply}
	if err != nil {
		kind := apperr.KindOf(err)
		resp.ErrorKind = kind.String()
		if resp.Reply == "" {
			resp.Reply = apperr.UserMessage(kind)
		}
	}
	return resp
}
