package models

// WorkoutTemplate is a reusable workout definition loaded from the vault's
// template directory.
type WorkoutTemplate struct {
	Name      string             `json:"name" yaml:"name"`
	Exercises []TemplateExercise `json:"exercises" yaml:"exercises"`
}

// TemplateExercise is one prescribed exercise within a template.
type TemplateExercise struct {
	ExerciseName     string             `json:"exerciseName" yaml:"exercise"`
	TargetSets       int                `json:"targetSets" yaml:"sets"`
	TargetRepsMin    int                `json:"targetRepsMin" yaml:"reps_min"`
	TargetRepsMax    int                `json:"targetRepsMax" yaml:"reps_max"`
	RestSeconds      int                `json:"restSeconds" yaml:"rest_seconds"`
	MuscleEngagement map[string]float64 `json:"muscleEngagement,omitempty" yaml:"muscle_engagement,omitempty"`
}

// ExerciseTarget is the prescription for an exercise added to a running
// session outside any template.
type ExerciseTarget struct {
	Sets        int `json:"sets"`
	RepsMin     int `json:"repsMin"`
	RepsMax     int `json:"repsMax"`
	RestSeconds int `json:"restSeconds"`
}

// SessionExercises builds the session-side exercise slots for this template,
// each starting with no logged sets.
func (t WorkoutTemplate) SessionExercises() []SessionExercise {
	out := make([]SessionExercise, len(t.Exercises))
	for i, ex := range t.Exercises {
		out[i] = ex.SessionExercise()
	}
	return out
}

// SessionExercise builds an empty session slot from this prescription.
func (te TemplateExercise) SessionExercise() SessionExercise {
	var engagement map[string]float64
	if te.MuscleEngagement != nil {
		engagement = make(map[string]float64, len(te.MuscleEngagement))
		for k, v := range te.MuscleEngagement {
			engagement[k] = v
		}
	}
	return SessionExercise{
		ExerciseName:     te.ExerciseName,
		TargetSets:       te.TargetSets,
		TargetRepsMin:    te.TargetRepsMin,
		TargetRepsMax:    te.TargetRepsMax,
		RestSeconds:      te.RestSeconds,
		Sets:             []LoggedSet{},
		MuscleEngagement: engagement,
	}
}
