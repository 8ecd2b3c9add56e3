package suggestions

var fallback = []Suggestion{
	{
		ID:               "0001",
		Title:            "3/4 Sit-Up",
		ShortDescription: "Abs • Body Weight • Beginner",
		FullDescription:  "An abdominal exercise that curls the torso up to a 45-degree angle, working the abs, hip flexors and lower back.",
		BodyPart:         "waist",
		Equipment:        "body weight",
		Target:           "abs",
		SecondaryMuscles: []string{"hip flexors", "lower back"},
		Instructions: []string{
			"Lie flat on your back with your knees bent and feet flat on the ground.",
			"Curl your upper body forward until your torso is at a 45-degree angle.",
			"Pause, then lower back down slowly.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
	{
		ID:               "0002",
		Title:            "45° Side Bend",
		ShortDescription: "Abs • Body Weight • Beginner",
		FullDescription:  "A standing side bend that targets the obliques while the core keeps the torso stable.",
		BodyPart:         "waist",
		Equipment:        "body weight",
		Target:           "abs",
		SecondaryMuscles: []string{"obliques"},
		Instructions: []string{
			"Stand with your feet shoulder-width apart and arms by your sides.",
			"Bend your torso to one side, lowering your hand towards your knee.",
			"Return to the start and repeat on the other side.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
	{
		ID:               "0003",
		Title:            "Air Bike",
		ShortDescription: "Abs • Body Weight • Beginner",
		FullDescription:  "A pedalling motion on your back that alternates elbow-to-knee contact to engage the core.",
		BodyPart:         "waist",
		Equipment:        "body weight",
		Target:           "abs",
		SecondaryMuscles: []string{"hip flexors"},
		Instructions: []string{
			"Lie on your back with your hands behind your head and knees bent at 90 degrees.",
			"Bring your right elbow towards your left knee while straightening your right leg.",
			"Alternate sides in a pedalling motion.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
	{
		ID:               "0006",
		Title:            "Alternate Heel Touchers",
		ShortDescription: "Abs • Body Weight • Beginner",
		FullDescription:  "Lying on your back, lift your shoulders and reach side to side to touch your heels.",
		BodyPart:         "waist",
		Equipment:        "body weight",
		Target:           "abs",
		SecondaryMuscles: []string{"obliques"},
		Instructions: []string{
			"Lie on your back with knees bent and feet flat.",
			"Lift your shoulders and reach your right hand towards your right heel.",
			"Alternate sides for the desired repetitions.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
	{
		ID:               "0007",
		Title:            "Alternate Lateral Pulldown",
		ShortDescription: "Lats • Cable • Beginner",
		FullDescription:  "A cable pulldown performed one side at a time, focusing on the latissimus dorsi.",
		BodyPart:         "back",
		Equipment:        "cable",
		Target:           "lats",
		SecondaryMuscles: []string{"biceps", "rhomboids"},
		Instructions: []string{
			"Sit at the cable machine and grasp the handles with an overhand grip.",
			"Pull the handles towards your chest, squeezing your shoulder blades.",
			"Release slowly back to the start.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
	{
		ID:               "0009",
		Title:            "Assisted Chest Dip (Kneeling)",
		ShortDescription: "Pectorals • Leverage Machine • Beginner",
		FullDescription:  "A machine-assisted dip with the knees supported on a pad, reducing the load while building chest strength.",
		BodyPart:         "chest",
		Equipment:        "leverage machine",
		Target:           "pectorals",
		SecondaryMuscles: []string{"triceps", "shoulders"},
		Instructions: []string{
			"Secure your knees on the pad and grasp the handles with arms extended.",
			"Lower your body until your upper arms are parallel to the floor.",
			"Push back up to the start.",
		},
		Difficulty: "beginner",
		Category:   "strength",
	},
}

// Fallback returns the built-in suggestions truncated to limit.
func Fallback(limit int) []Suggestion {
	if limit <= 0 || limit > len(fallback) {
		limit = len(fallback)
	}
	return append([]Suggestion(nil), fallback[:limit]...)
}
