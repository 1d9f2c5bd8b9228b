// Package metrics defines the Prometheus collectors for the conversion and
// training pipelines and tracks a progress snapshot for the status endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	TrainingStepsTotal *prometheus.CounterVec
	TrainingLoss       *prometheus.GaugeVec
	LearningRate       *prometheus.GaugeVec
	EpochLoss          *prometheus.GaugeVec
	EpochsCompleted    *prometheus.GaugeVec
	ClassAccuracy      *prometheus.GaugeVec
	DocumentsConverted prometheus.Counter
	RecordErrorsTotal  prometheus.Counter
	CheckpointsSaved   *prometheus.CounterVec
	Progress           *Progress
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		TrainingStepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vectrain_training_steps_total",
				Help: "Optimiser steps taken, by pipeline.",
			},
			[]string{"pipeline"},
		),
		TrainingLoss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vectrain_training_loss",
				Help: "Loss of the most recent training step, by pipeline.",
			},
			[]string{"pipeline"},
		),
		LearningRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vectrain_learning_rate",
				Help: "Current learning rate, by pipeline.",
			},
			[]string{"pipeline"},
		),
		EpochLoss: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vectrain_epoch_loss",
				Help: "Loss recorded at the end of the last epoch or iteration, by pipeline.",
			},
			[]string{"pipeline"},
		),
		EpochsCompleted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vectrain_epochs_completed",
				Help: "Epochs or iterations completed, by pipeline.",
			},
			[]string{"pipeline"},
		),
		ClassAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vectrain_class_accuracy",
				Help: "Test accuracy of the last evaluation, by class (negative, positive).",
			},
			[]string{"class"},
		),
		DocumentsConverted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vectrain_documents_converted_total",
				Help: "Documents written as vector sequence files.",
			},
		),
		RecordErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "vectrain_record_errors_total",
				Help: "Vector files skipped because they could not be parsed.",
			},
		),
		CheckpointsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vectrain_checkpoints_saved_total",
				Help: "Model checkpoints written, by pipeline.",
			},
			[]string{"pipeline"},
		),
		Progress: NewProgress(),
	}

	for _, c := range []prometheus.Collector{
		m.TrainingStepsTotal,
		m.TrainingLoss,
		m.LearningRate,
		m.EpochLoss,
		m.EpochsCompleted,
		m.ClassAccuracy,
		m.DocumentsConverted,
		m.RecordErrorsTotal,
		m.CheckpointsSaved,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Pipeline returns an observer that labels everything with name.
func (m *Metrics) Pipeline(name string) *Pipeline {
	return &Pipeline{m: m, name: name}
}

// Pipeline records the progress of one pipeline. It satisfies the observer
// interfaces of both trainers.
type Pipeline struct {
	m    *Metrics
	name string
}

func (p *Pipeline) ObserveStep(loss, lr float64) {
	p.m.TrainingStepsTotal.WithLabelValues(p.name).Inc()
	p.m.TrainingLoss.WithLabelValues(p.name).Set(loss)
	p.m.LearningRate.WithLabelValues(p.name).Set(lr)
	p.m.Progress.step(p.name, loss, lr)
}

func (p *Pipeline) ObserveIteration(iteration int, runningLoss float64) {
	p.ObserveEpoch(iteration, runningLoss)
}

func (p *Pipeline) ObserveEpoch(epoch int, loss float64) {
	p.m.EpochLoss.WithLabelValues(p.name).Set(loss)
	p.m.EpochsCompleted.WithLabelValues(p.name).Set(float64(epoch))
	p.m.Progress.epoch(p.name, epoch, loss)
}

func (p *Pipeline) ObserveAccuracy(negative, positive float64) {
	p.m.ClassAccuracy.WithLabelValues("negative").Set(negative)
	p.m.ClassAccuracy.WithLabelValues("positive").Set(positive)
	p.m.Progress.accuracy(negative, positive)
}

// DocumentConverted counts one written vector file.
func (p *Pipeline) DocumentConverted() {
	p.m.DocumentsConverted.Inc()
	p.m.Progress.converted(p.name)
}

// RecordError counts one skipped vector file.
func (p *Pipeline) RecordError() {
	p.m.RecordErrorsTotal.Inc()
}

// CheckpointSaved counts one written checkpoint.
func (p *Pipeline) CheckpointSaved() {
	p.m.CheckpointsSaved.WithLabelValues(p.name).Inc()
}
