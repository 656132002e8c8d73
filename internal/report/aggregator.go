// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/vitalis/internal/platform/apperr"
	"github.com/taibuivan/vitalis/internal/records"
)

// Sources bundles the three agent collaborators.
type Sources struct {
	Diet         records.DietSource
	Fitness      records.FitnessSource
	MentalHealth records.MentalHealthSource
}

// Aggregator fans out to the agent sources and assembles an [AggregatedReport].
type Aggregator struct {
	sources Sources
	timeout time.Duration
	now     func() time.Time
}

// NewAggregator creates an Aggregator. Each source call is bounded by timeout.
func NewAggregator(sources Sources, timeout time.Duration) *Aggregator {
	return &Aggregator{sources: sources, timeout: timeout, now: time.Now}
}

// WithClock replaces the time source used for generated_at.
func (aggregator *Aggregator) WithClock(now func() time.Time) *Aggregator {
	aggregator.now = now
	return aggregator
}

type fetchFunc func(ctx context.Context) (Section, error)

func (aggregator *Aggregator) fetcher(agent Agent, userID string, window Window) fetchFunc {
	switch agent {
	case AgentDiet:
		return func(ctx context.Context) (Section, error) {
			meals, err := aggregator.sources.Diet.FetchRecords(ctx, userID, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			return NewDietSection(meals), nil
		}
	case AgentFitness:
		return func(ctx context.Context) (Section, error) {
			workouts, err := aggregator.sources.Fitness.FetchRecords(ctx, userID, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			return NewFitnessSection(workouts), nil
		}
	case AgentMentalHealth:
		return func(ctx context.Context) (Section, error) {
			entries, err := aggregator.sources.MentalHealth.FetchRecords(ctx, userID, window.Start, window.End)
			if err != nil {
				return nil, err
			}
			return NewMentalHealthSection(entries), nil
		}
	}
	return nil
}

/*
Aggregate reads the sections selected by reportType for userID over window.

Description: Sources are queried concurrently, each under its own timeout.
In strict mode the first failure cancels the others and fails the request.
In partial mode failed sections are left out and named in
unavailable_sections; the request still fails if nothing could be read.

Parameters:
  - ctx: context.Context
  - userID: string
  - reportType: Type
  - window: Window
  - partial: bool

Returns:
  - *AggregatedReport: Populated report
  - error: DATA_SOURCE_UNAVAILABLE
*/
func (aggregator *Aggregator) Aggregate(ctx context.Context, userID string, reportType Type, window Window, partial bool) (*AggregatedReport, error) {
	agents := reportType.Agents()
	if len(agents) == 0 {
		return nil, apperr.ValidationError("Unknown report type")
	}

	sections := make([]Section, len(agents))
	failures := make([]error, len(agents))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, agent := range agents {
		i, agent := i, agent
		fetch := aggregator.fetcher(agent, userID, window)

		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, aggregator.timeout)
			defer cancel()

			section, err := fetch(fetchCtx)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", agent, err)
				if partial {
					return nil
				}
				return failures[i]
			}

			sections[i] = section
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, apperr.DataSourceUnavailable(err)
	}

	report := &AggregatedReport{
		UserID:      userID,
		ReportType:  reportType,
		GeneratedAt: aggregator.now().UTC(),
		PeriodDays:  window.Days,
		StartDate:   window.Start.UTC().Format(time.DateOnly),
		EndDate:     window.End.UTC().Format(time.DateOnly),
	}

	for i, section := range sections {
		if section == nil {
			report.UnavailableSections = append(report.UnavailableSections, agents[i])
			continue
		}
		report.Attach(section)
	}

	if len(report.UnavailableSections) == len(agents) {
		return nil, apperr.DataSourceUnavailable(errors.Join(failures...))
	}

	return report, nil
}
