// Package pkg provides the core libraries of the Quarry resolver.
//
// # Overview
//
// Quarry collects the transitive dependency graph of artifact coordinates
// from remote repositories. The pkg directory is organized along the data
// flow of a collection:
//
//	Coordinates ([artifact])
//	     ↓
//	[collector] traversal, driven by [manager] policy
//	     ↓  reads descriptors via [descriptor] + [registry/maven]
//	     ↓  resolves version ranges via [version]
//	     ↓  merges repositories via [repository]
//	Dependency graph ([graph])
//
// Underneath, [registry] clients sit on [transport] transporters and the
// [cache] backends; [errors] carries the structured failure taxonomy and
// [observability] the instrumentation hooks.
//
// # Quick Start
//
//	client := registry.NewClient(responseCache, 24*time.Hour)
//	reader, _ := maven.NewReader(client)
//	c := collector.New(reader, maven.NewVersionResolver(client), repository.NewMerger())
//
//	root := artifact.NewDependency(artifact.MustParse("org.example:app:1.0"), "compile")
//	result, err := c.Collect(ctx, collector.NewSession(), &collector.Request{
//	    Root:         &root,
//	    Repositories: []repository.Remote{repository.NewRemote("central", centralURL)},
//	})
package pkg
