package experiment

import (
	"encoding/json"
	"path"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/edgeracer/dqn"
	"github.com/zeu5/edgeracer/racing"
	"github.com/zeu5/edgeracer/util"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// RewardData is the reward curve of one experiment
type RewardData struct {
	Rewards        []float64 `json:"rewards"`
	MovingAverages []float64 `json:"moving_averages"`
}

// Best is the highest moving average reached, zero for an empty curve
func (r *RewardData) Best() float64 {
	if len(r.MovingAverages) == 0 {
		return 0
	}
	return floats.Max(r.MovingAverages)
}

// Mean reward over all the episodes
func (r *RewardData) Mean() float64 {
	if len(r.Rewards) == 0 {
		return 0
	}
	return stat.Mean(r.Rewards, nil)
}

type RewardAnalyzer struct {
	data *RewardData
}

var _ Analyzer = &RewardAnalyzer{}

func NewRewardAnalyzer() *RewardAnalyzer {
	a := &RewardAnalyzer{}
	a.Reset()
	return a
}

func (a *RewardAnalyzer) Analyze(_ int, _ string, s dqn.EpisodeSummary) {
	a.data.Rewards = append(a.data.Rewards, s.Reward)
	a.data.MovingAverages = append(a.data.MovingAverages, s.MovingAverage)
}

func (a *RewardAnalyzer) DataSet() DataSet {
	return a.data
}

func (a *RewardAnalyzer) Reset() {
	a.data = &RewardData{
		Rewards:        make([]float64, 0),
		MovingAverages: make([]float64, 0),
	}
}

// OutcomeCounts counts how the episodes of one experiment ended
type OutcomeCounts struct {
	Goals      int `json:"goals"`
	Collisions int `json:"collisions"`
	Timeouts   int `json:"timeouts"`
	// index of the first episode that reached the goal, -1 if none did
	FirstGoal int `json:"first_goal"`
}

func (o *OutcomeCounts) Episodes() int {
	return o.Goals + o.Collisions + o.Timeouts
}

type OutcomeAnalyzer struct {
	counts *OutcomeCounts
}

var _ Analyzer = &OutcomeAnalyzer{}

func NewOutcomeAnalyzer() *OutcomeAnalyzer {
	a := &OutcomeAnalyzer{}
	a.Reset()
	return a
}

func (a *OutcomeAnalyzer) Analyze(_ int, _ string, s dqn.EpisodeSummary) {
	switch s.Outcome {
	case racing.GoalReached:
		if a.counts.FirstGoal < 0 {
			a.counts.FirstGoal = s.Index
		}
		a.counts.Goals++
	case racing.Collided:
		a.counts.Collisions++
	default:
		a.counts.Timeouts++
	}
}

func (a *OutcomeAnalyzer) DataSet() DataSet {
	return a.counts
}

func (a *OutcomeAnalyzer) Reset() {
	a.counts = &OutcomeCounts{FirstGoal: -1}
}

// RewardPlotter draws the moving average reward of every experiment of a run
// and logs the best moving average and mean reward of each.
func RewardPlotter(plotPath string, logger log.Logger) Comparator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return func(run int, names []string, datasets []DataSet) error {
		if err := util.EnsureDir(plotPath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Moving average reward"
		for i := 0; i < len(names); i++ {
			data, ok := datasets[i].(*RewardData)
			if !ok || len(data.MovingAverages) == 0 {
				continue
			}
			points := make(plotter.XYs, len(data.MovingAverages))
			for j, v := range data.MovingAverages {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			level.Info(logger).Log("msg", "reward summary", "run", run, "experiment", names[i], "best_moving_average", data.Best(), "mean_reward", data.Mean())
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_rewards.png"))
	}
}

// OutcomeRecorder writes the outcome counts of every experiment of a run as JSON
func OutcomeRecorder(savePath string) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		out := make(map[string]*OutcomeCounts)
		for i, name := range names {
			if counts, ok := datasets[i].(*OutcomeCounts); ok {
				out[name] = counts
			}
		}
		bs, err := json.MarshalIndent(out, "", "\t")
		if err != nil {
			return err
		}
		return util.WriteToFile(path.Join(savePath, strconv.Itoa(run)+"_outcomes.json"), string(bs))
	}
}

type rewardLine struct {
	Run           int     `json:"run"`
	Experiment    string  `json:"experiment"`
	Episode       int     `json:"episode"`
	Reward        float64 `json:"reward"`
	MovingAverage float64 `json:"moving_average"`
}

// RewardRecorder appends one JSON line per episode to rewards.jsonl
func RewardRecorder(savePath string) Comparator {
	return func(run int, names []string, datasets []DataSet) error {
		lines := make([]string, 0)
		for i, name := range names {
			data, ok := datasets[i].(*RewardData)
			if !ok {
				continue
			}
			for j := range data.Rewards {
				bs, err := json.Marshal(rewardLine{
					Run:           run,
					Experiment:    name,
					Episode:       j,
					Reward:        data.Rewards[j],
					MovingAverage: data.MovingAverages[j],
				})
				if err != nil {
					return err
				}
				lines = append(lines, string(bs))
			}
		}
		if len(lines) == 0 {
			return nil
		}
		return util.AppendToFile(path.Join(savePath, "rewards.jsonl"), lines...)
	}
}
