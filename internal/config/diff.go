package config

// Change classifies the difference between two settings snapshots.
type Change int

const (
    // ChangeNone means nothing the desklet uses changed.
    ChangeNone Change = iota
    // ChangeDisplay means only the frame changed; the last result can be re-rendered.
    ChangeDisplay
    // ChangeData means the pending cycle must be cancelled and a new fetch run.
    ChangeData
)

func (c Change) String() string {
    switch c {
    case ChangeNone: return "none"
    case ChangeDisplay: return "display"
    case ChangeData: return "data"
    }
    return "unknown"
}

// Diff compares two snapshots. Size and transparency only affect the frame;
// any other field triggers a refetch.
func Diff(prev, next Settings) Change {
    if prev == next { return ChangeNone }
    frameOnly := prev
    frameOnly.Width = next.Width
    frameOnly.Height = next.Height
    frameOnly.Transparency = next.Transparency
    if frameOnly == next { return ChangeDisplay }
    return ChangeData
}
