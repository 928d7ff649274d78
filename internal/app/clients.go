package app

import (
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/convoroute-backend/internal/clients/openai"
	"github.com/yungbote/convoroute-backend/internal/clients/pinecone"
	redisclient "github.com/yungbote/convoroute-backend/internal/clients/redis"
	"github.com/yungbote/convoroute-backend/internal/clients/twilio"
	"github.com/yungbote/convoroute-backend/internal/pkg/logger"
)

type Clients struct {
	Redis       *goredis.Client
	ThreadLease redisclient.ThreadLease
	TenantCache redisclient.TenantCache

	OpenAI      openai.Client
	VectorStore pinecone.VectorStore
	Twilio      twilio.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var c Clients

	// Redis is optional: without it the thread lease and tenant cache fall
	// back to in-process implementations (single-replica only).
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		rdb, err := redisclient.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		c.Redis = rdb
		lease, err := redisclient.NewThreadLease(log, rdb, cfg.ThreadLeaseTTL)
		if err != nil {
			return Clients{}, fmt.Errorf("init thread lease: %w", err)
		}
		c.ThreadLease = lease
		cache, err := redisclient.NewTenantCache(log, rdb, cfg.TenantCacheTTL)
		if err != nil {
			return Clients{}, fmt.Errorf("init tenant cache: %w", err)
		}
		c.TenantCache = cache
	} else {
		log.Warn("REDIS_ADDR not set, using in-process thread lease (single replica only)")
		c.ThreadLease = redisclient.NewLocalThreadLease()
	}

	// Without OpenAI the classifier runs pattern-only and LLM-backed agents
	// drop out of the registry; routing still works, degraded.
	if strings.TrimSpace(os.Getenv("OPENAI_API_KEY")) != "" {
		oai, err := openai.NewClient(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		c.OpenAI = oai
	} else {
		log.Warn("OPENAI_API_KEY not set, running pattern-only classification")
	}

	// Pinecone is optional: without it the knowledge agent's capability
	// requirement goes unmet and the registry skips it.
	if strings.TrimSpace(os.Getenv("PINECONE_API_KEY")) != "" {
		pc, err := pinecone.New(log, pinecone.ConfigFromEnv())
		if err != nil {
			return Clients{}, fmt.Errorf("init pinecone client: %w", err)
		}
		vs, err := pinecone.NewVectorStore(log, pc)
		if err != nil {
			return Clients{}, fmt.Errorf("init vector store: %w", err)
		}
		c.VectorStore = vs
	} else {
		log.Warn("PINECONE_API_KEY not set, knowledge retrieval disabled")
	}

	// Twilio is optional: without it the WhatsApp webhook still processes
	// turns but cannot send outbound replies.
	if strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")) != "" {
		tw, err := twilio.NewFromEnv(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init twilio client: %w", err)
		}
		c.Twilio = tw
	}

	return c, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
