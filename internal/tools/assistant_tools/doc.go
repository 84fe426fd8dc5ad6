// Package assistant_tools exposes the assistant over MCP.
//
// A client hands an email and the scripted reasoner turns for it to
// assistant_process_email. Sessions that stop for human review are kept in
// the server's session store and continued with assistant_review, which
// takes approve, edit, reject or respond_with_feedback. The remaining tools
// inspect and abandon stored sessions and describe the tools the agent can
// call.
package assistant_tools
