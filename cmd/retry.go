package cmd

// retry resolves name in s's registry and clears its captured start
// failure, letting the automaton re-attempt Start.
func retry(s *session, name string) error {
	sc, err := s.registry.Get(name)
	if err != nil {
		return err
	}
	return sc.Retry()
}
