// Package servecmder provides the serve cobra command that runs the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/api"
	"github.com/synaptideco/synaptide/pkg/config"
	"github.com/synaptideco/synaptide/pkg/conversation"
	"github.com/synaptideco/synaptide/pkg/eventstream"
	"github.com/synaptideco/synaptide/pkg/eventstream/kafka"
	"github.com/synaptideco/synaptide/pkg/eventstream/nop"
	"github.com/synaptideco/synaptide/pkg/llm/openai"
	"github.com/synaptideco/synaptide/pkg/logger"
	"github.com/synaptideco/synaptide/pkg/storage/storeutil"
)

type ServeCommander struct {
	listen         string
	storageBackend string
	mongoURI       string
	database       string
	llmBaseURL     string
	llmModel       string
	eventsBackend  string
	kafkaBrokers   []string
	kafkaTopic     string

	debug  bool
	cfg    *config.Config
	logger *zap.Logger
}

const serveLongDesc string = `Run the Synaptide API server.

The server persists each user's conversation history and preference
profile, and generates replies through an OpenAI-compatible model.
Storage defaults to in-memory; point it at MongoDB for durability.`

const serveShortDesc string = "Run the Synaptide API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, []string{
				config.FlagListen,
				config.FlagStorageBackend,
				config.FlagMongoURI,
				config.FlagDatabase,
				config.FlagLLMBaseURL,
				config.FlagLLMModel,
				config.FlagEventsBackend,
				config.FlagKafkaBrokers,
				config.FlagKafkaTopic,
			})

			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagStorageBackend, &cmder.storageBackend)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagMongoURI, &cmder.mongoURI)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagDatabase, &cmder.database)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLLMBaseURL, &cmder.llmBaseURL)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLLMModel, &cmder.llmModel)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBackend, &cmder.eventsBackend)
	config.AddStringSliceFlag(cmd, config.ServeFlags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *ServeCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	store, err := storeutil.NewStore(ctx, storeutil.NewStoreOpts{
		Backend:  c.cfg.Storage.Backend,
		MongoURI: c.cfg.Storage.MongoURI,
		Database: c.cfg.Storage.Database,
		Fallback: c.cfg.Storage.Fallback,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer store.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer publisher.Close()

	client := openai.NewClient(openai.Config{
		BaseURL: c.cfg.LLM.BaseURL,
		APIKey:  c.cfg.LLM.APIKey,
		Model:   c.cfg.LLM.Model,
	})

	service := conversation.NewService(store, client, client, publisher, c.logger)

	server := api.NewServer(api.Config{
		ListenAddr: c.cfg.Server.Listen,
	}, store, service, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.cfg.Events.Backend {
	case "", "none":
		return nop.NewPublisher(), nil
	case "kafka":
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.cfg.Events.Brokers,
			Topic:   c.cfg.Events.Topic,
		}, c.logger)
		if err != nil {
			return nil, err
		}
		c.logger.Info("publishing exchange events to kafka",
			zap.Strings("brokers", c.cfg.Events.Brokers),
			zap.String("topic", c.cfg.Events.Topic),
		)
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events backend %q", c.cfg.Events.Backend)
	}
}
