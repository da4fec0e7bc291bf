package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"pagepulse/internal/cmdlog"
	"pagepulse/internal/config"
	"pagepulse/internal/fbclient"
	"pagepulse/internal/jobs"
	"pagepulse/internal/metrics"
	"pagepulse/internal/report"
	"pagepulse/internal/store/postdb"
	"pagepulse/internal/theme"
	"pagepulse/internal/trends"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "collect":
		cmdCollect()
	case "analyze":
		cmdAnalyze()
	case "recommend":
		cmdRecommend()
	case "trends":
		cmdTrends()
	case "report":
		cmdReport()
	case "run":
		cmdRun()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: pagepulse <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./pagepulse.yaml")
	fmt.Println("  collect     Fetch page posts and counter snapshots")
	fmt.Println("  analyze     Classify, compute KPIs, benchmarks, and ad scores")
	fmt.Println("  recommend   List top ad-potential posts")
	fmt.Println("  trends      Trending posts and growth rates")
	fmt.Println("  report      Period and topic summaries")
	fmt.Println("  run         Collect + analyze on an interval")
}

func mustLoad(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return cfg
}

func mustOpenDB(cfg config.Config) *postdb.DB {
	db, err := postdb.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	return db
}

func newClient(cfg config.Config) *fbclient.HTTPClient {
	if cfg.Credentials.AccessToken == "" {
		fmt.Println("warning: missing FB_ACCESS_TOKEN; API calls will fail")
	}
	return fbclient.NewHTTPClient(cfg.Credentials.AccessToken, cfg.Page.ID, cfg.API.Version)
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./pagepulse.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdCollect() {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	days := fs.Int("days", 30, "initial backfill horizon in days")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	client := newClient(cfg)
	metrics.StartServer(cfg.Metrics.Addr)
	err := cmdlog.Run("collect", func() error {
		return jobs.RunCollectOnce(context.Background(), db, client, cfg, time.Duration(*days)*24*time.Hour)
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("Collection complete")
}

func cmdAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	metrics.StartServer(cfg.Metrics.Addr)
	err := cmdlog.Run("analyze", func() error {
		return jobs.RunAnalyticsOnce(context.Background(), db, cfg)
	})
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("Analytics complete")
}

func cmdRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	limit := fs.Int("limit", 10, "max candidates")
	min := fs.Float64("min", 50, "minimum ad score")
	post := fs.String("post", "", "show the score for a single post id")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	if *post != "" {
		c, err := db.GetClassification(context.Background(), *post)
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		fmt.Printf("%s score=%.1f %s topic=%s slot=%s\n",
			c.PostID, c.AdScore, c.AdRecommendation, c.IssueTopic, c.TimeSlot)
		return
	}
	out, err := db.TopAdCandidates(context.Background(), *limit, *min)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	if len(out) == 0 {
		fmt.Println("No candidates above score", *min)
		return
	}
	for _, c := range out {
		fmt.Printf("%s score=%.1f %s tier=%s topic=%s %s\n",
			c.PostID, c.Score, c.Recommendation, c.Tier, c.IssueTopic, c.Permalink)
	}
}

func cmdTrends() {
	fs := flag.NewFlagSet("trends", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	hours := fs.Int("hours", 96, "trending window in hours")
	days := fs.Int("days", 7, "growth window in days")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC()

	hot, err := trends.Trending(ctx, db, now, *hours, 30)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Trending (last %dh):\n", *hours)
	for _, p := range hot {
		fmt.Printf("  %s %.2f eng/h ER=%.2f%% %s\n", p.PostID, p.EngagementPerHour, p.EngagementRate, p.MessagePreview)
	}

	growth, err := trends.GrowthRates(ctx, db, now, *days, 50)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Growth (last %dd):\n", *days)
	for _, g := range growth {
		fmt.Printf("  %s +%.2f%% (%+d engagement) %s\n", g.PostID, g.GrowthRatePct, g.EngagementGrowth, g.Message)
	}
}

func cmdReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	start := fs.String("start", "", "start date YYYY-MM-DD (default 7 days ago)")
	end := fs.String("end", "", "end date YYYY-MM-DD (default today)")
	gran := fs.String("granularity", "daily", "daily/weekly/monthly")
	topic := fs.String("topic", "", "filter top posts by topic")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	ctx := context.Background()
	now := time.Now().UTC()
	if *end == "" {
		*end = now.Format("2006-01-02")
	}
	if *start == "" {
		*start = now.AddDate(0, 0, -7).Format("2006-01-02")
	}

	rows, err := report.PeriodSummary(ctx, db, *start, *end, report.Granularity(*gran))
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Printf("Summary %s .. %s (%s):\n", *start, *end, *gran)
	for _, r := range rows {
		fmt.Printf("  %s posts=%d engagement=%d reach=%d avgER=%.2f%% [viral=%d high=%d avg=%d low=%d]\n",
			r.Period, r.PostCount, r.TotalEngagement, r.TotalReach, r.AvgEngagementRate,
			r.ViralCount, r.HighCount, r.AverageCount, r.LowCount)
	}

	topics, err := report.TopicPerformance(ctx, db, *start, *end)
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("Topics:")
	for _, r := range topics {
		fmt.Printf("  %-12s posts=%d avgER=%.2f%% reach=%d engagement=%d\n",
			r.Topic, r.PostCount, r.AvgEngagementRate, r.TotalReach, r.TotalEngagement)
	}

	top, err := report.TopPosts(ctx, db, *start, *end, 10, *topic, "")
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
	fmt.Println("Top posts:")
	for _, p := range top {
		fmt.Printf("  %s ER=%.2f%% tier=%s %s\n", p.PostID, p.EngagementRate, p.Tier, p.MessagePreview)
	}
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./pagepulse.yaml", "config path")
	interval := fs.Duration("interval", 6*time.Hour, "round interval")
	days := fs.Int("days", 30, "initial backfill horizon in days")
	_ = fs.Parse(os.Args[2:])
	cfg := mustLoad(*cfgPath)
	db := mustOpenDB(cfg)
	defer db.Close()
	client := newClient(cfg)
	metrics.StartServer(cfg.Metrics.Addr)
	theme.PrintBanner()
	fmt.Println("Running every", *interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := jobs.RunLoop(ctx, db, client, cfg, time.Duration(*days)*24*time.Hour, *interval); err != nil && err != context.Canceled {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
