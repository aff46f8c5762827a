package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"groundc/internal/asp"
	"groundc/internal/task"
)

var (
	batchPattern string
	checkAgainst string
	encodeOutput string
)

var compileCmd = &cobra.Command{
	Use:   "compile DOMAIN PROBLEM",
	Short: "Compile a domain and problem into a task document",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompile,
}

var batchCmd = &cobra.Command{
	Use:   "batch DOMAIN",
	Short: "Compile every problem matching a glob against one domain",
	Long: `Compiles each problem matched by --problems (doublestar syntax, e.g. 'problems/**/*.yaml')
one after another. Each task is written to <out>/<problem name>/.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var encodeCmd = &cobra.Command{
	Use:   "encode DOMAIN PROBLEM",
	Short: "Print the reachability program handed to the grounder",
	Args:  cobra.ExactArgs(2),
	RunE:  runEncode,
}

var checkCmd = &cobra.Command{
	Use:   "check DOMAIN PROBLEM",
	Short: "Compile twice and verify the output is deterministic",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheck,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the grounder result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count and sizes",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached grounder solution",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	batchCmd.Flags().StringVar(&batchPattern, "problems", "", "Glob of problem files")
	batchCmd.MarkFlagRequired("problems")
	checkCmd.Flags().StringVar(&checkAgainst, "against", "", "Previously written problem.json to compare digests with")
	encodeCmd.Flags().StringVar(&encodeOutput, "output", "", "Write the program to a file instead of stdout")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func compileOne(ctx context.Context, e *env, g asp.Grounder, domainPath, problemPath string) (*task.Result, error) {
	domain, problem, err := readTask(domainPath, problemPath)
	if err != nil {
		return nil, err
	}
	if problem.Domain != "" && problem.Domain != domain.Name {
		e.logger.Warn("problem names a different domain", "problem", problem.Name, "expected", problem.Domain, "domain", domain.Name)
	}

	opts := []task.Option{task.WithLogger(e.logger), task.WithCompression(e.cfg.Compress)}
	if g != nil {
		opts = append(opts, task.WithGrounder(g))
	}
	return task.Compile(ctx, domain, problem, opts...)
}

func runCompile(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	g, release, err := e.grounder()
	if err != nil {
		return err
	}
	defer release()

	res, err := compileOne(cmd.Context(), e, g, args[0], args[1])
	if err != nil {
		return err
	}
	if err := task.Write(e.cfg.OutDir, res, task.WriteOptions{Indent: e.cfg.IndentString()}); err != nil {
		return err
	}

	fmt.Printf("Compiled %d state variables, %d static tables\n", len(res.Document.Variables), len(res.Tables))
	fmt.Printf("Wrote %s\n", filepath.Join(e.cfg.OutDir, task.DocumentFile))
	fmt.Printf("Digest: %s\n", res.Document.Digest)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if !doublestar.ValidatePattern(batchPattern) {
		return fmt.Errorf("invalid problem pattern %q", batchPattern)
	}
	matches, err := doublestar.FilepathGlob(batchPattern, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("expanding %s: %w", batchPattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no problems match %s", batchPattern)
	}

	g, release, err := e.grounder()
	if err != nil {
		return err
	}
	defer release()

	for _, path := range matches {
		res, err := compileOne(cmd.Context(), e, g, args[0], path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		dir := filepath.Join(e.cfg.OutDir, name)
		if err := task.Write(dir, res, task.WriteOptions{Indent: e.cfg.IndentString()}); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("%-30s %6d variables  %s\n", name, len(res.Document.Variables), shortDigest(res.Document.Digest))
	}
	fmt.Printf("Compiled %d problems into %s\n", len(matches), e.cfg.OutDir)
	return nil
}

func runEncode(cmd *cobra.Command, args []string) error {
	domain, problem, err := readTask(args[0], args[1])
	if err != nil {
		return err
	}
	prog, err := task.Encode(domain, problem)
	if err != nil {
		return err
	}
	if encodeOutput != "" {
		return os.WriteFile(encodeOutput, []byte(prog.String()), 0644)
	}
	fmt.Print(prog.String())
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	g, release, err := e.grounder()
	if err != nil {
		return err
	}
	defer release()

	var outputs [2][]byte
	var digest string
	for i := range outputs {
		res, err := compileOne(cmd.Context(), e, g, args[0], args[1])
		if err != nil {
			return err
		}
		if outputs[i], err = task.Marshal(res.Document, task.WriteOptions{Indent: "  "}); err != nil {
			return err
		}
		digest = res.Document.Digest
	}

	if !bytes.Equal(outputs[0], outputs[1]) {
		showDiff(string(outputs[0]), string(outputs[1]))
		return fmt.Errorf("compilation is not deterministic")
	}

	if checkAgainst != "" {
		prev, err := task.ReadDocument(checkAgainst)
		if err != nil {
			return err
		}
		if prev.Digest != digest {
			return fmt.Errorf("digest mismatch: %s has %s, compiled %s", checkAgainst, shortDigest(prev.Digest), shortDigest(digest))
		}
	}

	fmt.Printf("OK %s\n", digest)
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	stats, err := cache.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Entries:     %d\n", stats.Entries)
	fmt.Printf("Solutions:   %d bytes\n", stats.RawBytes)
	fmt.Printf("Compressed:  %d bytes\n", stats.CompressedBytes)
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	defer cache.Close()

	if err := cache.Clear(); err != nil {
		return err
	}
	fmt.Println("Cache cleared.")
	return nil
}

// openCache opens the cache without an inner grounder; only Stats and Clear
// are used.
func openCache() (*asp.CachedGrounder, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return asp.OpenCache(e.cfg.CacheDir, nil, e.logger)
}

// showDiff prints a line diff of two renderings.
func showDiff(before, after string) {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			continue
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprintln(os.Stderr, prefix+line)
		}
	}
}

func shortDigest(s string) string {
	if len(s) >= 12 {
		return s[:12]
	}
	return s
}
