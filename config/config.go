// Package config loads the outer orchestration layer's TOML
// configuration: input paths, block sizes, worker counts, solver
// tolerances, and permutation sample counts. Grounded on the teacher's
// gwas.Config struct and its toml.DecodeFile loading convention
// (lmm/regenie_test.go). Per spec.md §6, no core kernel package
// (codec, genofile, transform, stats, grm, prs, ridge, permute, eigen)
// imports this package or reads environment variables; every kernel
// parameter arrives as an explicit Go argument.
package config

import (
	"github.com/BurntSushi/toml"
)

// Config describes one batch run of the genotype engine over a single
// cohort: where the genotype file and phenotype/effect inputs live, how
// the work is chunked, and the numeric knobs the ridge solver and
// permutation engine use.
type Config struct {
	GenoBinFilePrefix string `toml:"geno_binary_file_prefix"`
	GenoFormat        string `toml:"geno_format"` // "raw" or "bed"
	NumInds           int    `toml:"num_inds"`
	NumSnps           int    `toml:"num_snps"`

	PhenoFile string `toml:"pheno_file"`
	CovFile   string `toml:"covar_file"`
	SetFile   string `toml:"set_file"`

	GrmBlockSize    int `toml:"grm_block_size"`
	LocalNumThreads int `toml:"local_num_threads"`

	RidgeMaxIterations int     `toml:"ridge_max_iterations"`
	RidgeTolerance     float64 `toml:"ridge_tolerance"`
	RidgeLambda        float64 `toml:"ridge_lambda"`
	RidgeCacheColumns  bool    `toml:"ridge_cache_columns"`

	PermuteSamples int    `toml:"permute_num_samples"`
	PermuteSeedHex string `toml:"permute_seed_hex"`

	MemoryLimit uint64 `toml:"memory_limit"`

	OutDir   string `toml:"output_dir"`
	CacheDir string `toml:"cache_dir"`

	Debug bool `toml:"debug"`
}

// Load reads and decodes a TOML config file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
