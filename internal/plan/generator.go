// Package plan turns a user profile into a combined workout and nutrition plan.
//
// [Generator] derives the numeric targets once, runs [WorkoutModel] and [NutritionModel] side by side, and merges
// their results. The numeric sections of a plan always come from the targets, never from generated text.
package plan

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/fitplan/internal/errors"
	"github.com/myrjola/fitplan/internal/logging"
	"golang.org/x/sync/errgroup"
)

// workers is the number of generation requests in flight per plan.
const workers = 2

// Generator builds plans. It is safe for concurrent use.
type Generator struct {
	logger    *slog.Logger
	workout   *WorkoutModel
	nutrition *NutritionModel
	policy    ValidationPolicy
	now       func() time.Time
}

// NewGenerator creates a Generator. An empty policy means [PolicyWarn].
func NewGenerator(
	logger *slog.Logger,
	workout *WorkoutModel,
	nutrition *NutritionModel,
	policy ValidationPolicy,
) *Generator {
	if policy == "" {
		policy = PolicyWarn
	}
	return &Generator{
		logger:    logger,
		workout:   workout,
		nutrition: nutrition,
		policy:    policy,
		now:       time.Now,
	}
}

// Targets validates profile and derives its targets without generating anything.
func (g *Generator) Targets(ctx context.Context, profile UserProfile) (UserProfile, DerivedTargets, error) {
	profile = profile.Normalize()
	if err := ValidateProfile(profile); err != nil {
		return UserProfile{}, DerivedTargets{}, err
	}
	targets, activityKnown, err := DeriveTargets(profile)
	if err != nil {
		return UserProfile{}, DerivedTargets{}, errors.Wrap(err, "derive targets")
	}
	if !activityKnown {
		g.logger.LogAttrs(ctx, slog.LevelWarn, "unknown activity level, using sedentary multiplier",
			slog.String("activity_level", string(profile.ActivityLevel)))
	}
	return profile, targets, nil
}

// Generate creates a new plan for profile.
//
// Both halves are generated concurrently. When either fails the whole call fails with that error, the workout
// error taking precedence, and no partial plan is returned. A failing half does not cancel the other one.
func (g *Generator) Generate(ctx context.Context, profile UserProfile) (Plan, error) {
	profile, targets, err := g.Targets(ctx, profile)
	if err != nil {
		return Plan{}, err
	}
	id := uuid.NewString()
	ctx = logging.WithAttrs(ctx, slog.String("plan_id", id))

	var (
		workout      WorkoutFragment
		nutrition    NutritionFragment
		workoutErr   error
		nutritionErr error
		eg           errgroup.Group
	)
	eg.SetLimit(workers)
	eg.Go(func() error {
		workout, workoutErr = runPart(ctx, "workout", func(ctx context.Context) (WorkoutFragment, error) {
			return g.workout.Run(ctx, profile, targets.Clone())
		})
		return nil
	})
	eg.Go(func() error {
		nutrition, nutritionErr = runPart(ctx, "nutrition", func(ctx context.Context) (NutritionFragment, error) {
			return g.nutrition.Run(ctx, profile, targets.Clone())
		})
		return nil
	})
	_ = eg.Wait()

	if workoutErr != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "workout generation failed", errors.SlogError(workoutErr))
		return Plan{}, workoutErr
	}
	if nutritionErr != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "nutrition generation failed", errors.SlogError(nutritionErr))
		return Plan{}, nutritionErr
	}

	p := Plan{
		ID:            id,
		CreatedAt:     g.now().UTC(),
		WorkoutPlan:   workout.Plan,
		NutritionPlan: nutrition.Plan,
		Validation: PlanValidation{
			Workout:   workout.Validation,
			Nutrition: nutrition.Validation,
		},
	}
	p.applyTargets(profile, targets)
	if err = g.enforce(p.Validation); err != nil {
		return Plan{}, err
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "plan generated", slog.Bool("valid", p.Validation.Valid()))
	return p, nil
}

// RegenerateWorkout replaces the workout half of current. The targets are derived again from profile, and the
// nutrition half is kept as is.
func (g *Generator) RegenerateWorkout(ctx context.Context, profile UserProfile, current Plan) (Plan, error) {
	profile, targets, err := g.Targets(ctx, profile)
	if err != nil {
		return Plan{}, err
	}
	p := g.derive(current)
	ctx = logging.WithAttrs(ctx, slog.String("plan_id", p.ID), slog.String("derived_from", current.ID))

	fragment, err := runPart(ctx, "workout", func(ctx context.Context) (WorkoutFragment, error) {
		return g.workout.Run(ctx, profile, targets.Clone())
	})
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "workout regeneration failed", errors.SlogError(err))
		return Plan{}, err
	}
	p.WorkoutPlan = fragment.Plan
	p.Validation.Workout = fragment.Validation
	p.applyTargets(profile, targets)
	if err = g.enforce(PlanValidation{Workout: fragment.Validation, Nutrition: newValidation(nil)}); err != nil {
		return Plan{}, err
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "workout regenerated", slog.Bool("valid", fragment.Validation.Valid))
	return p, nil
}

// RegenerateNutrition replaces the nutrition half of current. The targets are derived again from profile, and the
// workout half is kept as is.
func (g *Generator) RegenerateNutrition(ctx context.Context, profile UserProfile, current Plan) (Plan, error) {
	profile, targets, err := g.Targets(ctx, profile)
	if err != nil {
		return Plan{}, err
	}
	p := g.derive(current)
	ctx = logging.WithAttrs(ctx, slog.String("plan_id", p.ID), slog.String("derived_from", current.ID))

	fragment, err := runPart(ctx, "nutrition", func(ctx context.Context) (NutritionFragment, error) {
		return g.nutrition.Run(ctx, profile, targets.Clone())
	})
	if err != nil {
		g.logger.LogAttrs(ctx, slog.LevelError, "nutrition regeneration failed", errors.SlogError(err))
		return Plan{}, err
	}
	p.NutritionPlan = fragment.Plan
	p.Validation.Nutrition = fragment.Validation
	p.applyTargets(profile, targets)
	if err = g.enforce(PlanValidation{Workout: newValidation(nil), Nutrition: fragment.Validation}); err != nil {
		return Plan{}, err
	}
	g.logger.LogAttrs(ctx, slog.LevelInfo, "nutrition regenerated", slog.Bool("valid", fragment.Validation.Valid))
	return p, nil
}

// derive starts a new plan from current with a fresh identity.
func (g *Generator) derive(current Plan) Plan {
	p := current
	p.ID = uuid.NewString()
	p.CreatedAt = g.now().UTC()
	p.DerivedFrom = current.ID
	return p
}

func (g *Generator) enforce(v PlanValidation) error {
	if g.policy != PolicyReject {
		return nil
	}
	if !v.Workout.Valid {
		return &ValidationError{Part: "workout", Issues: v.Workout.Issues}
	}
	if !v.Nutrition.Valid {
		return &ValidationError{Part: "nutrition", Issues: v.Nutrition.Issues}
	}
	return nil
}

// runPart runs one half with its own logging context and turns a panic into an error.
func runPart[T any](ctx context.Context, part string, run func(context.Context) (T, error)) (_ T, err error) {
	ctx = logging.WithAttrs(ctx, slog.String("plan_part", part))
	defer func() {
		if r := recover(); r != nil {
			err = errors.DecoratePanic(r)
		}
	}()
	return run(ctx)
}
