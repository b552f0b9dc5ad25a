// Package watcher implements the client side of an unidle progress page.
//
// A page subscribes to the server's event stream, renders each progress
// message, and on the first terminal outcome either reveals the failure
// region or reveals the success region and navigates to the woken
// application after a fixed delay.
//
// # Structure
//
//   - Transition is a pure function from (State, Inbound) to the next State
//     and the Effects to perform. It holds every rule of the state machine.
//   - Watcher executes those Effects against injected collaborators: a
//     Presenter, the stream's closer, a Scheduler and a Navigator.
//   - Subscriber turns an SSE subscription into Inbound values.
//
// # States
//
//	Waiting --Progress--> Waiting
//	Waiting --Success---> Success (terminal, redirect scheduled)
//	Waiting --Error-----> Failure (terminal)
//
// Once a terminal state is entered nothing further is acted upon.
package watcher
