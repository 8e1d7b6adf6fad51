// Package testutil provides test helpers and assertion utilities used across
// this module's test suites.
//
// This is an internal package and is not part of the public API.
//
// # Assertion Helpers
//
// The package provides lightweight assertion functions that fail the test
// immediately on mismatch:
//
//   - [AssertNoError] — fails if err is non-nil
//   - [AssertError] — fails if err is nil
//   - [AssertEqual] — performs deep equality comparison
//   - [AssertContains] — checks string containment
//
// Example:
//
//	result, err := agent.Run(ctx, "hello")
//	testutil.AssertNoError(t, err)
//	testutil.AssertContains(t, result.Text(), "world")
//
// # Stream Collector
//
// [CollectStream] drains an iter.Seq2[T, error] iterator into a slice,
// stopping on the first error. This is useful for testing streaming
// interfaces:
//
//	chunks, err := testutil.CollectStream(model.StreamChat(ctx, request))
//	testutil.AssertNoError(t, err)
//	testutil.AssertEqual(t, 3, len(chunks))
//
// # Mock Packages
//
// Dedicated mock implementations for core interfaces are available in
// sub-packages:
//
//   - [github.com/lookatitude/agentcore/internal/testutil/mockllm] — mock ChatModel
//   - [github.com/lookatitude/agentcore/internal/testutil/mocktool] — mock Tool
package testutil
