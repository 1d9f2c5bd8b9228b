// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the top-level configuration of a vectrain run.
type Config struct {
	Device   string         `yaml:"device"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	DBCreds  DBCreds        `yaml:"db_creds"`
	Paths    PathsConfig    `yaml:"paths"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Word2Vec Word2VecConfig `yaml:"word2vec"`
	LSTM     LSTMConfig     `yaml:"lstm"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"output_path"`
}

// MetricsConfig controls the monitoring HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DBCreds holds the optional Postgres run store credentials.
type DBCreds struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PathsConfig lists the files shared between pipelines.
type PathsConfig struct {
	DictionaryFile     string   `yaml:"dictionary_file"`
	SourceVectors      string   `yaml:"source_vectors"`
	PrimaryDocuments   []string `yaml:"primary_documents"`
	SecondaryDocuments []string `yaml:"secondary_documents"`
	ModelDir           string   `yaml:"model_dir"`
	CSVLossDir         string   `yaml:"csv_loss_dir"`
	CSVAccuracyDir     string   `yaml:"csv_accuracy_dir"`
	SimilarityCSV      string   `yaml:"similarity_csv"`
	ProjectionCSV      string   `yaml:"projection_csv"`
}

// ConversionSet describes one group of documents converted to vector files.
type ConversionSet struct {
	Name      string   `yaml:"name"`
	Documents []string `yaml:"documents"`
	LabelsIn  string   `yaml:"labels_in"`
	OutputDir string   `yaml:"output_dir"`
	LabelsOut string   `yaml:"labels_out"`
}

// EncoderConfig controls document to vector conversion.
type EncoderConfig struct {
	MaxDocumentLength int             `yaml:"max_document_length"`
	Fallback          string          `yaml:"fallback"`
	PadValue          float64         `yaml:"pad_value"`
	Workers           int             `yaml:"workers"`
	Seed              int64           `yaml:"seed"`
	Extension         string          `yaml:"extension"`
	Sets              []ConversionSet `yaml:"sets"`
}

// Word2VecConfig holds the skip-gram hyperparameters.
type Word2VecConfig struct {
	EmbeddingDim     int     `yaml:"embedding_dim"`
	BatchSize        int     `yaml:"batch_size"`
	WindowSize       int     `yaml:"window_size"`
	InitialLR        float64 `yaml:"initial_lr"`
	MinCount         int     `yaml:"min_count"`
	Negatives        int     `yaml:"negatives"`
	Iterations       int     `yaml:"iterations"`
	Subsample        float64 `yaml:"subsample"`
	Corpus           string  `yaml:"corpus"`
	LogEvery         int     `yaml:"log_every"`
	UnigramTableSize int     `yaml:"unigram_table_size"`
	Seed             int64   `yaml:"seed"`
	SaveModel        bool    `yaml:"save_model"`
}

// VectorSet points at a converted set of vector files.
type VectorSet struct {
	VectorsDir string `yaml:"vectors_dir"`
	LabelsFile string `yaml:"labels_file"`
}

// LSTMConfig holds the sequence classifier hyperparameters.
type LSTMConfig struct {
	LearningRate       float64   `yaml:"learning_rate"`
	IterationsPerEpoch int       `yaml:"iterations_per_epoch"`
	InputDim           int       `yaml:"input_dim"`
	Category           string    `yaml:"category"`
	HiddenDim          int       `yaml:"hidden_dim"`
	LayerDim           int       `yaml:"layer_dim"`
	OutputDim          int       `yaml:"output_dim"`
	Epochs             int       `yaml:"epochs"`
	WeightInit         string    `yaml:"weight_init"`
	ModelPath          string    `yaml:"model_path"`
	SaveModel          bool      `yaml:"save_model"`
	ComputeAccuracies  bool      `yaml:"compute_accuracies"`
	TestSamples        int       `yaml:"test_samples"`
	ParsePolicy        string    `yaml:"parse_policy"`
	Seed               int64     `yaml:"seed"`
	Train              VectorSet `yaml:"train"`
	Test               VectorSet `yaml:"test"`
}

// Default returns the configuration used for any value the YAML file omits.
func Default() *Config {
	return &Config{
		Device: "cpu",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		DBCreds: DBCreds{
			Host: "localhost",
			Port: "5432",
		},
		Paths: PathsConfig{
			DictionaryFile: "data/dictionary.txt",
			ModelDir:       "data/models",
			CSVLossDir:     "data/csv/loss",
			CSVAccuracyDir: "data/csv/accuracy",
		},
		Encoder: EncoderConfig{
			Fallback:  "zero",
			Workers:   4,
			Seed:      1,
			Extension: ".vec",
		},
		Word2Vec: Word2VecConfig{
			EmbeddingDim:     50,
			BatchSize:        32,
			WindowSize:       7,
			InitialLR:        0.01,
			MinCount:         1,
			Negatives:        5,
			Iterations:       3,
			Subsample:        1e-4,
			Corpus:           "combined",
			LogEvery:         500,
			UnigramTableSize: 1_000_000,
			Seed:             1,
		},
		LSTM: LSTMConfig{
			LearningRate:       0.01,
			IterationsPerEpoch: 100,
			InputDim:           50,
			Category:           "exclusive_strata",
			HiddenDim:          30,
			LayerDim:           1,
			OutputDim:          2,
			Epochs:             100,
			WeightInit:         "fromScratch",
			TestSamples:        100,
			ParsePolicy:        "abort",
			Seed:               1,
		},
	}
}

// LoadConfig loads the configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := Default()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, apperrors.Resource("read config", configPath, err)
		}
		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return nil, apperrors.Configf("parse config", "unable to unmarshal %s: %v", configPath, err)
		}
	}
	applyEnvOverrides(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnvOverrides reads VT_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VT_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("VT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("VT_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
		cfg.Metrics.Enabled = true
	}
	if v := os.Getenv("VT_DB_HOST"); v != "" {
		cfg.DBCreds.Host = v
	}
	if v := os.Getenv("VT_DB_PASSWORD"); v != "" {
		cfg.DBCreds.Password = v
	}
	if v := os.Getenv("VT_DICTIONARY_FILE"); v != "" {
		cfg.Paths.DictionaryFile = v
	}
	if v := os.Getenv("VT_LSTM_EPOCHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LSTM.Epochs = n
		}
	}
	if v := os.Getenv("VT_LSTM_WEIGHT_INIT"); v != "" {
		cfg.LSTM.WeightInit = v
	}
	if v := os.Getenv("VT_LSTM_MODEL_PATH"); v != "" {
		cfg.LSTM.ModelPath = v
	}
	if v := os.Getenv("VT_WORD2VEC_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Word2Vec.Iterations = n
		}
	}
}

// Validate checks the numeric ranges every pipeline relies on.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Encoder.MaxDocumentLength >= 0, "encoder.max_document_length must be >= 0")
	check(c.Encoder.Workers > 0, "encoder.workers must be > 0")

	w := c.Word2Vec
	check(w.EmbeddingDim > 0, "word2vec.embedding_dim must be > 0")
	check(w.BatchSize > 0, "word2vec.batch_size must be > 0")
	check(w.WindowSize > 0, "word2vec.window_size must be > 0")
	check(w.InitialLR > 0, "word2vec.initial_lr must be > 0")
	check(w.MinCount > 0, "word2vec.min_count must be > 0")
	check(w.Negatives >= 0, "word2vec.negatives must be >= 0")
	check(w.Iterations > 0, "word2vec.iterations must be > 0")
	check(w.Subsample >= 0, "word2vec.subsample must be >= 0")
	check(w.LogEvery > 0, "word2vec.log_every must be > 0")
	check(w.UnigramTableSize > 0, "word2vec.unigram_table_size must be > 0")

	l := c.LSTM
	check(l.LearningRate > 0, "lstm.learning_rate must be > 0")
	check(l.IterationsPerEpoch > 0, "lstm.iterations_per_epoch must be > 0")
	check(l.InputDim > 0, "lstm.input_dim must be > 0")
	check(l.HiddenDim > 0, "lstm.hidden_dim must be > 0")
	check(l.LayerDim > 0, "lstm.layer_dim must be > 0")
	check(l.OutputDim >= 2, "lstm.output_dim must be >= 2")
	check(l.Epochs >= 0, "lstm.epochs must be >= 0")
	check(l.TestSamples > 0, "lstm.test_samples must be > 0")

	if len(problems) > 0 {
		return apperrors.Configf("validate config", "%s", strings.Join(problems, "; "))
	}
	return nil
}
