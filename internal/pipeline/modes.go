package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TFMV/VecTrainer/internal/dataset"
	"github.com/TFMV/VecTrainer/internal/encoder"
	"github.com/TFMV/VecTrainer/internal/lstm"
	"github.com/TFMV/VecTrainer/internal/similarity"
	"github.com/TFMV/VecTrainer/internal/standardizer"
	"github.com/TFMV/VecTrainer/internal/word2vec"
	apperrors "github.com/TFMV/VecTrainer/pkg/errors"
	"github.com/TFMV/VecTrainer/pkg/pca"
	"github.com/TFMV/VecTrainer/pkg/tfidf"
	"github.com/TFMV/VecTrainer/pkg/utils"
	"gonum.org/v1/gonum/mat"
)

const defaultNeighbours = 10

func (r *Runner) convert(ctx context.Context, sw *stopwatch) error {
	cfg := r.cfg
	if cfg.Paths.SourceVectors == "" {
		return apperrors.Configf("convert", "paths.source_vectors is required")
	}
	if len(cfg.Encoder.Sets) == 0 {
		return apperrors.Configf("convert", "encoder.sets is empty")
	}
	for _, set := range cfg.Encoder.Sets {
		if len(set.Documents) == 0 || set.OutputDir == "" {
			return apperrors.Configf("convert", "set %q needs documents and output_dir", set.Name)
		}
	}
	fallback, err := encoder.ParseFallback(cfg.Encoder.Fallback)
	if err != nil {
		return err
	}
	field, err := dataset.ParseField(cfg.LSTM.Category)
	if err != nil {
		return err
	}

	dict, err := encoder.ReadDictionary(cfg.Paths.SourceVectors)
	if err != nil {
		return err
	}
	sw.markLoaded()

	pipe := r.metrics.Pipeline(string(ModeConvert))
	enc := encoder.New(dict, encoder.Options{
		MaxDocumentLength: cfg.Encoder.MaxDocumentLength,
		Fallback:          fallback,
		PadValue:          cfg.Encoder.PadValue,
		Workers:           cfg.Encoder.Workers,
		Seed:              cfg.Encoder.Seed,
		Extension:         cfg.Encoder.Extension,
		OnConverted:       pipe.DocumentConverted,
	}, r.logger)

	for _, set := range cfg.Encoder.Sets {
		written, err := enc.ConvertDocuments(ctx, set.Documents, set.OutputDir)
		if err != nil {
			return fmt.Errorf("convert %s: %w", set.Name, err)
		}
		sw.summary.Outputs = append(sw.summary.Outputs, written...)

		if set.LabelsIn == "" {
			continue
		}
		codes, err := dataset.ReadLabels(set.LabelsIn, field)
		if err != nil {
			return err
		}
		if len(codes) != len(set.Documents) {
			return apperrors.Configf("convert", "set %q has %d documents but %d labels", set.Name, len(set.Documents), len(codes))
		}
		labelsOut := set.LabelsOut
		if labelsOut == "" {
			labelsOut = filepath.Join(set.OutputDir, "labels.txt")
		}
		if err := dataset.WriteLabels(labelsOut, codes); err != nil {
			return err
		}
		sw.summary.Outputs = append(sw.summary.Outputs, labelsOut)
		r.logger.Info("set %s: %d documents, labels by %s", set.Name, len(written), field)
	}

	if err := encoder.WriteDictionary(cfg.Paths.DictionaryFile, enc.Dictionary()); err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, cfg.Paths.DictionaryFile)
	return nil
}

func (r *Runner) word2vec(ctx context.Context, sw *stopwatch) error {
	cfg := r.cfg
	corpus, err := word2vec.ParseCorpus(cfg.Word2Vec.Corpus)
	if err != nil {
		return err
	}
	if len(cfg.Paths.PrimaryDocuments)+len(cfg.Paths.SecondaryDocuments) == 0 {
		return apperrors.Configf("word2vec", "no primary or secondary documents configured")
	}

	primary, err := standardizer.ReadDocuments(ctx, cfg.Paths.PrimaryDocuments, cfg.Encoder.Workers)
	if err != nil {
		return err
	}
	secondary, err := standardizer.ReadDocuments(ctx, cfg.Paths.SecondaryDocuments, cfg.Encoder.Workers)
	if err != nil {
		return err
	}

	pipe := r.metrics.Pipeline(string(ModeWord2Vec))
	trainer, err := word2vec.NewTrainer(cfg.Word2Vec, cfg.Device, primary, secondary, r.logger, pipe)
	if err != nil {
		return err
	}
	sw.markLoaded()

	losses, err := trainer.Train(ctx, corpus, cfg.Paths.DictionaryFile)
	if err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, cfg.Paths.DictionaryFile)

	now := r.now()
	curves := utils.Curves{Losses: losses}
	written, err := utils.ResultsToCSV(curves, trainer.HyperParameters(), cfg.Paths.CSVLossDir, "", now)
	if err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, written...)

	if cfg.Word2Vec.SaveModel {
		path, err := trainer.SaveCheckpoint(cfg.Paths.ModelDir, now)
		if err != nil {
			return err
		}
		pipe.CheckpointSaved()
		sw.summary.Outputs = append(sw.summary.Outputs, path)
	}
	return r.record(ctx, ModeWord2Vec, trainer.HyperParameters(), curves)
}

func (r *Runner) lstm(ctx context.Context, sw *stopwatch) error {
	cfg := r.cfg
	field, err := dataset.ParseField(cfg.LSTM.Category)
	if err != nil {
		return err
	}
	policy, err := dataset.ParseParsePolicy(cfg.LSTM.ParsePolicy)
	if err != nil {
		return err
	}
	if cfg.LSTM.Train.VectorsDir == "" || cfg.LSTM.Train.LabelsFile == "" {
		return apperrors.Configf("lstm", "lstm.train needs vectors_dir and labels_file")
	}

	pipe := r.metrics.Pipeline(string(ModeLSTM))
	train, err := dataset.LoadVectorSet("train", cfg.LSTM.Train.VectorsDir, cfg.LSTM.Train.LabelsFile,
		field, cfg.Encoder.Extension, 0, cfg.LSTM.InputDim,
		dataset.Options{Policy: policy, Seed: cfg.LSTM.Seed, OnRecordError: pipe.RecordError}, r.logger)
	if err != nil {
		return err
	}

	var test lstm.Sampler
	if cfg.LSTM.Test.VectorsDir != "" {
		set, err := dataset.LoadVectorSet("test", cfg.LSTM.Test.VectorsDir, cfg.LSTM.Test.LabelsFile,
			field, cfg.Encoder.Extension, 0, cfg.LSTM.InputDim,
			dataset.Options{Policy: policy, Seed: cfg.LSTM.Seed + 1, OnRecordError: pipe.RecordError}, r.logger)
		if err != nil {
			return err
		}
		test = set
	}

	trainer, err := lstm.NewTrainer(cfg.LSTM, cfg.Device, train, test, r.logger, pipe)
	if err != nil {
		return err
	}
	sw.markLoaded()

	curves, err := trainer.Train(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	accuracyDir := ""
	if cfg.LSTM.ComputeAccuracies {
		accuracyDir = cfg.Paths.CSVAccuracyDir
	}
	written, err := utils.ResultsToCSV(curves, trainer.HyperParameters(), cfg.Paths.CSVLossDir, accuracyDir, now)
	if err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, written...)

	if cfg.LSTM.SaveModel {
		path, err := trainer.SaveCheckpoint(cfg.Paths.ModelDir, now)
		if err != nil {
			return err
		}
		pipe.CheckpointSaved()
		sw.summary.Outputs = append(sw.summary.Outputs, path)
	}
	if skipped := train.Skipped(); skipped > 0 {
		r.logger.Warn("skipped %d unreadable training files", skipped)
	}
	return r.record(ctx, ModeLSTM, trainer.HyperParameters(), curves)
}

func (r *Runner) similarity(sw *stopwatch, opts Options) error {
	cfg := r.cfg
	if len(opts.Queries) == 0 {
		return apperrors.Configf("similarity", "no query words given")
	}
	if cfg.Paths.SimilarityCSV == "" {
		return apperrors.Configf("similarity", "paths.similarity_csv is required")
	}
	k := opts.K
	if k <= 0 {
		k = defaultNeighbours
	}

	dict, err := encoder.ReadDictionary(cfg.Paths.DictionaryFile)
	if err != nil {
		return err
	}
	index := similarity.NewIndex(dict)
	sw.markLoaded()

	results := make(map[string][]similarity.Neighbour, len(opts.Queries))
	for _, q := range opts.Queries {
		neighbours, err := index.Nearest(q, k)
		if err != nil {
			return err
		}
		results[q] = neighbours
	}
	if err := ensureDir(cfg.Paths.SimilarityCSV); err != nil {
		return err
	}
	if err := similarity.WriteNeighboursCSV(cfg.Paths.SimilarityCSV, opts.Queries, results); err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, cfg.Paths.SimilarityCSV)

	if len(cfg.Paths.PrimaryDocuments) == 0 {
		return nil
	}
	texts := make([][]string, len(cfg.Paths.PrimaryDocuments))
	for i, path := range cfg.Paths.PrimaryDocuments {
		words, err := standardizer.ReadDocument(path)
		if err != nil {
			return err
		}
		texts[i] = words
	}
	weights := tfidf.Fit(texts)
	docs := make([][]float64, len(texts))
	for i, words := range texts {
		docs[i] = similarity.WeightedDocumentVector(dict, words, weights.IDF)
	}
	distances := strings.TrimSuffix(cfg.Paths.SimilarityCSV, ".csv") + "_distances.csv"
	if err := similarity.AngularDistancesCSV(distances, docs); err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, distances)
	return nil
}

func (r *Runner) project(sw *stopwatch) error {
	cfg := r.cfg
	if cfg.Paths.ProjectionCSV == "" {
		return apperrors.Configf("project", "paths.projection_csv is required")
	}
	dict, err := encoder.ReadDictionary(cfg.Paths.DictionaryFile)
	if err != nil {
		return err
	}
	words := dict.Words()
	if len(words) < 2 || dict.Dim() < 2 {
		return apperrors.Configf("project", "need at least 2 words of dimension >= 2, have %d of dimension %d", len(words), dict.Dim())
	}
	data := mat.NewDense(len(words), dict.Dim(), nil)
	for i, w := range words {
		vec, _ := dict.Lookup(w)
		data.SetRow(i, vec)
	}
	sw.markLoaded()

	model := pca.NewPCA(2)
	projected, err := model.FitTransform(data)
	if err != nil {
		return apperrors.Numericalf("project", "pca: %v", err)
	}
	if ratios, err := model.ExplainedVarianceRatio(); err == nil {
		r.logger.Info("projected %d words, explained variance %v", len(words), ratios)
	}
	if err := writeProjection(cfg.Paths.ProjectionCSV, words, projected); err != nil {
		return err
	}
	sw.summary.Outputs = append(sw.summary.Outputs, cfg.Paths.ProjectionCSV)
	return nil
}

// writeProjection writes "word,x,y" rows in dictionary order.
func writeProjection(path string, words []string, points mat.Matrix) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return apperrors.Resource("write projection", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	w.Write([]string{"word", "x", "y"})
	for i, word := range words {
		w.Write([]string{
			word,
			strconv.FormatFloat(points.At(i, 0), 'f', 6, 64),
			strconv.FormatFloat(points.At(i, 1), 'f', 6, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return apperrors.Resource("write projection", path, err)
	}
	if err := file.Close(); err != nil {
		return apperrors.Resource("write projection", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Resource("create directory", dir, err)
	}
	return nil
}
