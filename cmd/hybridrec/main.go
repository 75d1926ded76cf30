// hybridrec 是离线推荐构建的命令行入口。
//
// 子命令对应三类构建任务：
//
//	train-hybrid    I2I 相关商品（word2vec + 内容向量索引）
//	train-static    U2I 静态推荐（SVD 协同过滤）
//	update-dynamic  U2I 动态推荐（24h 行为窗口）
//	train-all       后台并行跑 hybrid 与 static，轮询状态
//	lookup          读取已发布的推荐（服务侧回退链）
//	validate-config 校验配置驱动的 pipeline 定义
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quadra-commerce/hybridrec/config"
	"github.com/quadra-commerce/hybridrec/core"
	"github.com/quadra-commerce/hybridrec/embedding"
	"github.com/quadra-commerce/hybridrec/job"
	"github.com/quadra-commerce/hybridrec/pipeline"
	"github.com/quadra-commerce/hybridrec/store"

	_ "github.com/quadra-commerce/hybridrec/config/builders"
)

var (
	flagRedisAddr string
	flagRedisDB   int
	flagVerbose   bool
)

func main() {
	root := &cobra.Command{
		Use:           "hybridrec",
		Short:         "Offline builders for the hybrid product recommendation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", envOr("REDIS_ADDR", "redis:6379"), "redis address (empty disables publishing)")
	root.PersistentFlags().IntVar(&flagRedisDB, "redis-db", 0, "redis database number")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newTrainHybridCmd())
	root.AddCommand(newTrainStaticCmd())
	root.AddCommand(newUpdateDynamicCmd())
	root.AddCommand(newTrainAllCmd())
	root.AddCommand(newLookupCmd())
	root.AddCommand(newValidateConfigCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if flagVerbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openStore 连接发布目标。地址为空时返回 nil（只产出 JSON，不发布）。
func openStore(log *zap.Logger) (core.Store, error) {
	if flagRedisAddr == "" {
		log.Warn("redis address empty, publishing disabled")
		return nil, nil
	}
	return store.NewRedisStore(flagRedisAddr, flagRedisDB)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type hybridFlags struct {
	behavior          string
	products          string
	w2vModel          string
	embeddingsCache   string
	indexPath         string
	indexMetaPath     string
	outJSON           string
	embeddingEndpoint string
	embeddingModel    string
	embeddingDim      int
	minCount          int
	epochs            int
	topnW2V           int
	topnContent       int
	hybridWeightW2V   float64
	contentOnlyForNew bool
	evaluate          bool
	clusters          int
}

func (f *hybridFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.behavior, "behavior", "data/user_behavior.csv", "behavior export csv")
	cmd.Flags().StringVar(&f.products, "products", "data/product_details.csv", "product export csv")
	cmd.Flags().StringVar(&f.w2vModel, "w2v-model", "models/prod2vec.gob", "sequence model output path")
	cmd.Flags().StringVar(&f.embeddingsCache, "embeddings-cache", "models/product_embeddings.gob", "content vector cache path")
	cmd.Flags().StringVar(&f.indexPath, "index", "models/content.index", "vector index blob path")
	cmd.Flags().StringVar(&f.indexMetaPath, "index-meta", "models/content.index.meta.json", "vector index metadata path")
	cmd.Flags().StringVar(&f.outJSON, "out-json", "related_products.json", "json artifact path")
	cmd.Flags().StringVar(&f.embeddingEndpoint, "embedding-endpoint", envOr("EMBEDDING_ENDPOINT", "http://embedding:8080"), "embedding service endpoint")
	cmd.Flags().StringVar(&f.embeddingModel, "embedding-model", "all-MiniLM-L6-v2", "embedding model identifier")
	cmd.Flags().IntVar(&f.embeddingDim, "embedding-dim", 384, "embedding vector dimension")
	cmd.Flags().IntVar(&f.minCount, "min-count", 1, "sequence model min product frequency")
	cmd.Flags().IntVar(&f.epochs, "epochs", 10, "sequence model training epochs")
	cmd.Flags().IntVar(&f.topnW2V, "topn-w2v", 10, "behavior-based neighbors per product")
	cmd.Flags().IntVar(&f.topnContent, "topn-content", 10, "content-based neighbors per product")
	cmd.Flags().Float64Var(&f.hybridWeightW2V, "hybrid-weight-w2v", 0.7, "blend weight of the behavior signal")
	cmd.Flags().BoolVar(&f.contentOnlyForNew, "content-only-for-new", false, "use content neighbors only for products without behavior")
	cmd.Flags().BoolVar(&f.evaluate, "evaluate", false, "report precision/recall on a 20% holdout")
	cmd.Flags().IntVar(&f.clusters, "clusters", 128, "vector index clusters (<=1 for exact search)")
}

func (f *hybridFlags) builder(st core.Store, log *zap.Logger) *job.HybridBuilder {
	var creds embedding.CredentialSource
	if keys := os.Getenv("EMBEDDING_API_KEYS"); keys != "" {
		creds = embedding.NewRoundRobin(strings.Split(keys, ","))
	}
	encoder := embedding.NewServiceEncoder(
		f.embeddingEndpoint, f.embeddingModel, f.embeddingDim,
		embedding.WithCredentials(creds),
	)

	return &job.HybridBuilder{
		MinCount:          f.minCount,
		Epochs:            f.epochs,
		TopNW2V:           f.topnW2V,
		TopNContent:       f.topnContent,
		HybridWeightW2V:   f.hybridWeightW2V,
		ContentOnlyForNew: f.contentOnlyForNew,
		Clusters:          f.clusters,
		Evaluate:          f.evaluate,
		W2VModelPath:      f.w2vModel,
		IndexPath:         f.indexPath,
		IndexMetaPath:     f.indexMetaPath,
		OutJSONPath:       f.outJSON,
		Encoder:           encoder,
		Cache:             &embedding.VectorCache{Path: f.embeddingsCache},
		Store:             st,
		Log:               log,
	}
}

func (f *hybridFlags) load() (core.BehaviorLog, []core.ProductRecord, error) {
	behavior, err := job.LoadBehaviorCSV(f.behavior)
	if err != nil {
		return nil, nil, err
	}
	products, err := job.LoadProductsCSV(f.products)
	if err != nil {
		return nil, nil, err
	}
	return behavior, products, nil
}

func newTrainHybridCmd() *cobra.Command {
	var flags hybridFlags
	cmd := &cobra.Command{
		Use:   "train-hybrid",
		Short: "Build item-to-item related products (behavior + content blend)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer log.Sync()

			st, err := openStore(log)
			if err != nil {
				return err
			}
			behavior, products, err := flags.load()
			if err != nil {
				return err
			}

			result, err := flags.builder(st, log).Run(cmd.Context(), behavior, products)
			if err != nil {
				return err
			}
			if result.Evaluated {
				fmt.Printf("precision: %.4f, recall: %.4f\n", result.Precision, result.Recall)
			}
			fmt.Printf("related products built for %d products\n", result.Products)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

type staticFlags struct {
	behavior string
	factors  int
	epochs   int
	modelOut string
	outJSON  string
}

func (f *staticFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.behavior, "behavior", "data/user_behavior.csv", "behavior export csv")
	cmd.Flags().IntVar(&f.factors, "factors", 50, "svd latent factors")
	cmd.Flags().IntVar(&f.epochs, "epochs", 20, "svd training epochs")
	cmd.Flags().StringVar(&f.modelOut, "model-out", "models/svd.gob", "svd model output path")
	cmd.Flags().StringVar(&f.outJSON, "out-json", "recommendations.json", "json artifact path")
}

// registerPrefixed 供 train-all 使用：与 hybrid 的同名 flag 错开。
func (f *staticFlags) registerPrefixed(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.factors, "svd-factors", 50, "svd latent factors")
	cmd.Flags().IntVar(&f.epochs, "svd-epochs", 20, "svd training epochs")
	cmd.Flags().StringVar(&f.modelOut, "svd-model-out", "models/svd.gob", "svd model output path")
	cmd.Flags().StringVar(&f.outJSON, "static-out-json", "recommendations.json", "static json artifact path")
}

func (f *staticFlags) builder(st core.Store, log *zap.Logger) *job.StaticBuilder {
	return &job.StaticBuilder{
		Factors:     f.factors,
		Epochs:      f.epochs,
		ModelPath:   f.modelOut,
		OutJSONPath: f.outJSON,
		Store:       st,
		Log:         log,
	}
}

func newTrainStaticCmd() *cobra.Command {
	var flags staticFlags
	cmd := &cobra.Command{
		Use:   "train-static",
		Short: "Build user-to-item static recommendations (SVD)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer log.Sync()

			st, err := openStore(log)
			if err != nil {
				return err
			}
			behavior, err := job.LoadBehaviorCSV(flags.behavior)
			if err != nil {
				return err
			}

			result, err := flags.builder(st, log).Run(cmd.Context(), behavior)
			if err != nil {
				return err
			}
			fmt.Printf("rmse: %.4f\n", result.RMSE)
			fmt.Printf("static recommendations built for %d users\n", result.Users)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newUpdateDynamicCmd() *cobra.Command {
	var (
		behaviorPath string
		productsPath string
		users        []string
		windowHours  int
	)
	cmd := &cobra.Command{
		Use:   "update-dynamic",
		Short: "Refresh dynamic recommendations from the recent behavior window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer log.Sync()

			st, err := openStore(log)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("update-dynamic requires a redis address")
			}
			behavior, err := job.LoadBehaviorCSV(behaviorPath)
			if err != nil {
				return err
			}
			products, err := job.LoadProductsCSV(productsPath)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(products))
			categories := make(map[string]string, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
				categories[p.ID] = p.Category
			}

			updater := &job.DynamicUpdater{
				Behavior:   behavior,
				Products:   ids,
				Categories: categories,
				Window:     time.Duration(windowHours) * time.Hour,
				Store:      st,
				Log:        log,
			}

			targets := users
			if len(targets) == 0 {
				targets = behavior.Users()
			}
			for _, uid := range targets {
				recs, err := updater.UpdateUser(cmd.Context(), uid)
				if err != nil {
					return err
				}
				if recs != nil {
					fmt.Printf("user %s: %d recommendations\n", uid, len(recs))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&behaviorPath, "behavior", "data/user_behavior.csv", "behavior export csv")
	cmd.Flags().StringVar(&productsPath, "products", "data/product_details.csv", "product export csv")
	cmd.Flags().StringSliceVar(&users, "user", nil, "user ids to refresh (default: all users in the export)")
	cmd.Flags().IntVar(&windowHours, "window-hours", 24, "recent behavior window in hours")
	return cmd
}

func newTrainAllCmd() *cobra.Command {
	var (
		hflags hybridFlags
		sflags staticFlags
	)
	cmd := &cobra.Command{
		Use:   "train-all",
		Short: "Run the hybrid and static builds in the background and poll status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer log.Sync()

			st, err := openStore(log)
			if err != nil {
				return err
			}
			behavior, products, err := hflags.load()
			if err != nil {
				return err
			}

			runner := job.NewRunner(log)
			hybridID := runner.Start("train-hybrid", func(ctx context.Context) error {
				_, err := hflags.builder(st, log).Run(ctx, behavior, products)
				return err
			})
			staticID := runner.Start("train-static", func(ctx context.Context) error {
				_, err := sflags.builder(st, log).Run(ctx, behavior)
				return err
			})

			runner.Wait()

			failed := false
			for _, id := range []string{hybridID, staticID} {
				status, err := runner.Status(id)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s\n", status.Name, status.State)
				if status.State == job.RunStateFailed {
					fmt.Printf("  %s\n", status.Error)
					failed = true
				}
			}
			if failed {
				return fmt.Errorf("one or more builds failed")
			}
			return nil
		},
	}
	hflags.register(cmd)
	sflags.registerPrefixed(cmd)
	return cmd
}

func newValidateConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-config <pipeline.yaml|pipeline.json>",
		Short: "Validate and build a pipeline config against the registered node types",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := args[0]

			var (
				cfg *pipeline.Config
				err error
			)
			if strings.HasSuffix(path, ".json") {
				cfg, err = pipeline.LoadFromJSON(path)
			} else {
				cfg, err = pipeline.LoadFromYAML(path)
			}
			if err != nil {
				return err
			}

			if err := config.ValidatePipelineConfig(cfg); err != nil {
				return err
			}
			pl, err := cfg.BuildPipeline(config.DefaultFactory())
			if err != nil {
				return err
			}

			fmt.Printf("pipeline %q: %d nodes, ok\n", cfg.Pipeline.Name, len(pl.Nodes))
			return nil
		},
	}
	return cmd
}

func newLookupCmd() *cobra.Command {
	var (
		productID string
		userID    string
	)
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Read published recommendations (dynamic -> static -> trending fallback)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger()
			defer log.Sync()

			st, err := openStore(log)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("lookup requires a redis address")
			}
			lookup := &job.Lookup{Store: st}

			switch {
			case productID != "":
				ids, err := lookup.RelatedProducts(cmd.Context(), productID)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
			case userID != "":
				ids, err := lookup.HomeRecommendations(cmd.Context(), userID)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
			default:
				return fmt.Errorf("either --product or --user is required")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id for related-products lookup")
	cmd.Flags().StringVar(&userID, "user", "", "user id for home recommendations lookup")
	return cmd
}
