// Package services defines the shared error taxonomy for the bot's
// collaborators. Sentinel markers classify failures so the pipeline can
// decide whether to skip a candidate, abort the run, or stop publishing.
package services
