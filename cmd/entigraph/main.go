package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/entigraph/entigraph/internal/entities"
	"github.com/entigraph/entigraph/internal/events"
	"github.com/entigraph/entigraph/internal/infrastructure/config"
	"github.com/entigraph/entigraph/internal/infrastructure/database"
	"github.com/entigraph/entigraph/internal/infrastructure/metrics"
	"github.com/entigraph/entigraph/internal/repositories"
	"github.com/entigraph/entigraph/internal/repositories/memory"
	"github.com/entigraph/entigraph/internal/repositories/postgres"
	"github.com/entigraph/entigraph/internal/services/cascade"
	"github.com/entigraph/entigraph/internal/services/graph"
	"github.com/entigraph/entigraph/internal/services/parser"
	"github.com/entigraph/entigraph/internal/services/resolver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	envFlag     string
	schemaFlag  string
	memoryFlag  bool
	metricsFlag string

	dataFlag         string
	typeFlag         string
	seedFlag         string
	maxDepthFlag     int
	cascadeTypesFlag string
	stopOnErrorFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "entigraph",
	Short: "Schema-driven entity graph store",
	Long: `Entigraph is a schema-driven entity graph store.
Entities and relationships are declared in a JSON schema using a compact
field expression DSL; relationship fields resolve to graph edges.`,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate a schema file",
	RunE:  runValidate,
}

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Entity operations",
}

var entityCreateCmd = &cobra.Command{
	Use:   "create <type>",
	Short: "Create an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityCreate,
}

var entityGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Retrieve an entity by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityGet,
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE:  runEntityList,
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entity and every edge touching it",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityDelete,
}

var relationQueryCmd = &cobra.Command{
	Use:   "relations [fromID] [relation] [toID]",
	Short: "Query edges; empty or \"-\" arguments are wildcards",
	Args:  cobra.MaximumNArgs(3),
	RunE:  runRelationQuery,
}

var traverseCmd = &cobra.Command{
	Use:   "traverse <fromID> <relation,relation,...>",
	Short: "Follow a relation path and print the entities reached",
	Args:  cobra.ExactArgs(2),
	RunE:  runTraverse,
}

var cascadeCmd = &cobra.Command{
	Use:   "cascade <type>",
	Short: "Create an entity and cascade its relationship fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runCascade,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")
	rootCmd.PersistentFlags().StringVarP(&schemaFlag, "schema", "s", "schema.json", "Path to the JSON schema file")
	rootCmd.PersistentFlags().BoolVar(&memoryFlag, "memory", false, "Use the in-memory backend instead of PostgreSQL")
	rootCmd.PersistentFlags().StringVar(&metricsFlag, "metrics-listen", "", "Address to serve Prometheus metrics on (e.g. :9090)")

	entityCreateCmd.Flags().StringVar(&dataFlag, "data", "{}", "Entity data as JSON")
	entityListCmd.Flags().StringVar(&typeFlag, "type", "", "Filter by entity type")
	traverseCmd.Flags().StringVar(&typeFlag, "type", "", "Filter results by entity type")
	cascadeCmd.Flags().StringVar(&seedFlag, "seed", "{}", "Seed document as JSON, or @file to read one")
	cascadeCmd.Flags().IntVar(&maxDepthFlag, "max-depth", -1, "Cascade depth (default from config)")
	cascadeCmd.Flags().StringVar(&cascadeTypesFlag, "cascade-types", "", "Comma-separated types allowed to cascade")
	cascadeCmd.Flags().BoolVar(&stopOnErrorFlag, "stop-on-error", false, "Abort on the first field failure")

	entityCmd.AddCommand(entityCreateCmd, entityGetCmd, entityListCmd, entityDeleteCmd)
	rootCmd.AddCommand(validateCmd, entityCmd, relationQueryCmd, traverseCmd, cascadeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadSchema() (*entities.Schema, error) {
	raw, err := os.ReadFile(schemaFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	var doc entities.RawSchema
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema file is not valid JSON: %w", err)
	}
	return parser.ParseSchema(doc)
}

// session holds the wired backend for one CLI invocation
type session struct {
	graph     *graph.Service
	cfg       *config.Config
	collector *metrics.Collector
	closers   []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newSession() (*session, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector()
	s := &session{collector: collector}

	if metricsFlag != "" {
		registry := prometheus.NewRegistry()
		if _, err := metrics.NewPrometheusExporter(collector, registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsFlag, mux); err != nil {
				log.Printf("metrics listener failed: %v", err)
			}
		}()
	}

	var entityRepo repositories.EntityRepository
	var relationRepo repositories.RelationRepository
	var reporter events.Reporter

	if memoryFlag {
		store := memory.NewStore()
		entityRepo = store.Entities()
		relationRepo = store.Relations()
	} else {
		if err := config.InitConfig(envFlag); err != nil {
			return nil, fmt.Errorf("failed to initialize config: %w", err)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		s.cfg = cfg

		pg, err := database.NewPostgres(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.closers = append(s.closers, func() { _ = pg.Close() })
		entityRepo = postgres.NewPostgresEntityRepository(pg.DB)
		relationRepo = postgres.NewPostgresRelationRepository(pg.DB)

		if cfg.NATS.Enabled {
			nr, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to NATS: %w", err)
			}
			s.closers = append(s.closers, nr.Close)
			reporter = nr
		}
	}

	s.graph = graph.NewService(schema, entityRepo, relationRepo, reporter, collector)
	return s, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}
	for _, et := range schema.Entities {
		relationships := 0
		for _, f := range et.Fields {
			if f.Kind == entities.KindRelationship {
				relationships++
			}
		}
		fmt.Printf("%s: %d fields (%d relationships)\n", et.Name, len(et.Fields), relationships)
	}
	fmt.Println("Schema is valid")
	return nil
}

func runEntityCreate(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var data map[string]any
	if err := json.Unmarshal([]byte(dataFlag), &data); err != nil {
		return fmt.Errorf("--data is not valid JSON: %w", err)
	}

	created, err := s.graph.CreateEntity(context.Background(), &entities.Entity{Type: args[0], Data: data})
	if err != nil {
		return err
	}
	return printJSON(created)
}

func runEntityGet(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	entity, err := s.graph.GetEntity(context.Background(), args[0])
	if err != nil {
		return err
	}
	return printJSON(entity)
}

func runEntityList(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.graph.ListEntities(context.Background(), &repositories.EntityFilter{Type: typeFlag})
	if err != nil {
		return err
	}
	return printJSON(list)
}

func runEntityDelete(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.graph.DeleteEntity(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Println("Not found")
		return nil
	}
	fmt.Println("Deleted")
	return nil
}

func runRelationQuery(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	arg := func(i int) string {
		if i < len(args) && args[i] != "-" {
			return args[i]
		}
		return ""
	}
	rels, err := s.graph.QueryRelations(context.Background(), &repositories.RelationFilter{
		FromID: arg(0), Relation: arg(1), ToID: arg(2),
	})
	if err != nil {
		return err
	}
	return printJSON(rels)
}

func runTraverse(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	reached, err := s.graph.Traverse(context.Background(), args[0], args[1], typeFlag)
	if err != nil {
		return err
	}
	return printJSON(reached)
}

func runCascade(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.Close()

	seedJSON := seedFlag
	if strings.HasPrefix(seedJSON, "@") {
		raw, err := os.ReadFile(seedJSON[1:])
		if err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
		seedJSON = string(raw)
	}
	var seed map[string]any
	if err := json.Unmarshal([]byte(seedJSON), &seed); err != nil {
		return fmt.Errorf("--seed is not valid JSON: %w", err)
	}

	maxDepth := maxDepthFlag
	if maxDepth < 0 {
		maxDepth = 3
		if s.cfg != nil {
			maxDepth = s.cfg.Resolver.DefaultMaxDepth
		}
	}
	opts := cascade.Options{
		MaxDepth:    maxDepth,
		StopOnError: stopOnErrorFlag,
		OnProgress:  func(n int) { log.Printf("created %d entities", n) },
		OnError:     func(err error) { log.Printf("skipped field: %v", err) },
	}
	if cascadeTypesFlag != "" {
		opts.CascadeTypes = strings.Split(cascadeTypesFlag, ",")
	}

	// No generation collaborator is wired at the CLI level: fields that
	// need to fabricate a target fail with a capability error and follow
	// the error policy.
	engine := resolverEngine(s)
	orch := cascade.NewOrchestrator(s.graph, engine, s.collector)

	root, err := orch.Create(context.Background(), args[0], seed, opts)
	if err != nil {
		return err
	}
	return printJSON(root)
}

func resolverEngine(s *session) *resolver.Engine {
	engine := resolver.NewEngine(s.graph, nil, nil, s.collector)
	if s.cfg != nil {
		engine.SetDefaultThreshold(s.cfg.Resolver.DefaultThreshold)
	}
	return engine
}
