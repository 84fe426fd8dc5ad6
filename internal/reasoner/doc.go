// Package reasoner defines the boundary to the reasoning collaborator, the
// external model that decides the assistant's next action.
//
// The assistant hands a Request (instructions, the conversation so far and
// the available tool specs) to a Reasoner and receives a Proposal: either a
// tool call or plain text. How the collaborator reaches its decision is not
// this module's concern.
//
// Scripted replays a fixed list of turns and is used by tests, the run
// command and the MCP server's scenario mode. It derives its position from
// the number of assistant messages in the request, so a session that was
// saved and reloaded resumes at the right turn.
package reasoner
