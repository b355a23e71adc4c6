// Package catalog loads named formulas from YAML files and keeps them
// compiled for evaluation.
//
// A catalog file lists formulas authored by designers, each with optional
// test cases:
//
//	version: "1"
//	formulas:
//	  - name: damage
//	    description: Attack after armor, never below one
//	    expression: max(attack - armor, 1) * multiplier
//	    tests:
//	      - name: armored
//	        vars: {attack: 10, armor: 4, multiplier: 2}
//	        expect: 12
//	  - name: can_flee
//	    kind: condition
//	    expression: speed > enemySpeed and not cornered
//	  - name: ratio
//	    expression: hits / attempts
//	    tests:
//	      - vars: {hits: 1, attempts: 0}
//	        error: division_by_zero
//
// Every expression is compiled through a formula.Engine, so it passes the
// same security gate as ad hoc input and rejections are audited. Loading is
// all or nothing. Names must be unique across the files of a catalog.
//
// # Hot Reload
//
// Manager holds the active catalog. Watch reloads it when files change,
// debounced so an editor's burst of writes triggers one reload. A reload
// that fails keeps serving the previous catalog:
//
//	loader := catalog.NewLoader(engine, nil).WithMetrics(collector)
//	mgr := catalog.NewManager(loader, catalog.ManagerConfig{Path: "formulas/"})
//	if err := mgr.Load(); err != nil {
//		return err
//	}
//	go mgr.Watch(ctx)
//	ok, err := mgr.Condition("can_flee", vars)
package catalog
