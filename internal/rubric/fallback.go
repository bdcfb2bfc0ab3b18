package rubric

// Fallback builds the degraded evaluation used when the model response could
// not be parsed or validated. Hold procedure defaults to NA (full points, no
// hold observed); parameters whose legal set excludes zero get their minimum
// legal value. The total is recomputed, never hardcoded.
func Fallback(errMessage string) *Evaluation {
	unable := func() ScoreEntry { return ScoreEntry{Score: 0, Reason: "Unable to evaluate"} }
	na := func() ScoreEntry { return ScoreEntry{Score: 4, Reason: "NA - default"} }

	ev := &Evaluation{
		TranscriptSummary: "Evaluation failed: " + errMessage,
		Greeting: Greeting{
			GreetProtocol: unable(),
			OfferHelp:     unable(),
		},
		Information: Information{
			ConfirmInfo:     unable(),
			ConfirmLocation: unable(),
			ConfirmModality: unable(),
			CompleteDetails: unable(),
			InfoWithin1Min:  unable(),
		},
		HoldProcedure: HoldProcedure{
			ProperHoldScript:     na(),
			ExtendHoldDisconnect: na(),
			ReconnectAfter60s:    na(),
		},
		QualityCheck: QualityCheck{
			NoInterrupt:     unable(),
			Attentive:       unable(),
			NoJargon:        unable(),
			NoRepetition:    unable(),
			PoliteCourteous: ScoreEntry{Score: 1, Reason: "Unable to evaluate"},
			ToneSpeed:       ScoreEntry{Score: 1, Reason: "Unable to evaluate"},
		},
		UnsureSituation: UnsureSituation{
			AssureCallback: unable(),
		},
		ClosingScript: ClosingScript{
			AskFurtherHelp: unable(),
			FollowClosing:  unable(),
			AccurateInfo:   unable(),
		},
		SoundQuality: SoundQuality{
			ClearConfident: ScoreEntry{Score: 1, Reason: "Unable to evaluate"},
		},
		RecordHandling: RecordHandling{
			AccurateRecord:    unable(),
			ProperDisposition: unable(),
			SpellCheck:        unable(),
		},
	}
	ev.TotalScore = ComputeTotal(ev)
	return ev
}
