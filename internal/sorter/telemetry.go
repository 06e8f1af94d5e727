// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package sorter

import (
	"fmt"

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

var (
	sortJobsCounter otelmetric.Int64Counter
	sortJobDuration otelmetric.Float64Histogram
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/colsort/internal/sorter")
	tracer = otel.Tracer("github.com/cardinalhq/colsort/internal/sorter")

	var err error
	sortJobsCounter, err = meter.Int64Counter(
		"colsort.sorter.jobs",
		otelmetric.WithDescription("Number of sort jobs that reached a terminal status, by outcome"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sorter.jobs counter: %w", err))
	}

	sortJobDuration, err = meter.Float64Histogram(
		"colsort.sorter.job.duration",
		otelmetric.WithUnit("s"),
		otelmetric.WithDescription("The duration in seconds of a sort job from start to terminal status"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create sorter.job.duration histogram: %w", err))
	}
}
